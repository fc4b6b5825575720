package sync

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/frotalog/registro/internal/apiserver/database"
	"github.com/frotalog/registro/internal/common/cnst"
	"github.com/frotalog/registro/internal/common/config"
	"github.com/frotalog/registro/internal/common/dto"
)

type fixture struct {
	svc      *Service
	db       database.Database
	empresa1 database.Empresa
	empresa2 database.Empresa
	usuario1 database.Usuario
	usuario2 database.Usuario
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Type:   "sqlite",
		DBName: filepath.Join(t.TempDir(), "test.db"),
	}
	db, err := database.NewSQLite(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		svc: NewService(db, zap.NewNop()),
		db:  db,
	}

	g := db.GORM()
	f.empresa1 = database.Empresa{Nome: "Alfa Transportes", CNPJ: "11.111.111/0001-11"}
	f.empresa2 = database.Empresa{Nome: "Beta Logistica", CNPJ: "22.222.222/0001-22"}
	require.NoError(t, g.Create(&f.empresa1).Error)
	require.NoError(t, g.Create(&f.empresa2).Error)

	f.usuario1 = database.Usuario{Nome: "Ana", Email: "ana@alfa.com.br", SenhaHash: "x", EmpresaID: f.empresa1.ID}
	f.usuario2 = database.Usuario{Nome: "Bruno", Email: "bruno@beta.com.br", SenhaHash: "x", EmpresaID: f.empresa2.ID}
	require.NoError(t, g.Create(&f.usuario1).Error)
	require.NoError(t, g.Create(&f.usuario2).Error)

	return f
}

func (f *fixture) addRegistro(t *testing.T, uuid string, empresaID, usuarioID uint, at time.Time) database.Registro {
	t.Helper()
	r := database.Registro{
		UUID:      uuid,
		EmpresaID: empresaID,
		UsuarioID: usuarioID,
		Tipo:      cnst.TipoCompra,
		DataHora:  at,
		Descricao: "abastecimento completo",
		CreatedAt: at,
		UpdatedAt: at,
	}
	require.NoError(t, f.db.GORM().Create(&r).Error)
	return r
}

func uuids(records []dto.RawRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID())
	}
	return out
}

func TestPullFullResync(t *testing.T) {
	f := newFixture(t)
	old := time.Now().Add(-time.Hour)

	r1 := f.addRegistro(t, "reg-1", f.empresa1.ID, f.usuario1.ID, old)
	f.addRegistro(t, "reg-2", f.empresa2.ID, f.usuario2.ID, old)

	foto := database.FotoRegistro{UUID: "foto-1", RegistroID: r1.ID, URLFoto: "https://cdn.example.com/f1.jpg"}
	require.NoError(t, f.db.GORM().Create(&foto).Error)

	changes, timestamp, err := f.svc.Pull(context.Background(), nil, f.empresa1.ID)
	require.NoError(t, err)
	assert.Greater(t, timestamp, int64(0))

	registros := changes[cnst.TableRegistros]
	assert.Equal(t, []string{"reg-1"}, uuids(registros.Created))
	assert.Empty(t, registros.Updated)
	assert.Empty(t, registros.Deleted)
	assert.Equal(t, "entrada", registros.Created[0].String("tipo"))

	fotos := changes[cnst.TableFotoRegistros]
	require.Len(t, fotos.Created, 1)
	assert.Equal(t, "foto-1", fotos.Created[0].ID())
	assert.Equal(t, "reg-1", fotos.Created[0].String("registro_id"))
	assert.Equal(t, "https://cdn.example.com/f1.jpg", fotos.Created[0].String("path_url"))

	usuarios := changes[cnst.TableUsuarios]
	require.Len(t, usuarios.Created, 1)
	assert.Equal(t, "ana@alfa.com.br", usuarios.Created[0].String("email"))
	assert.NotEmpty(t, usuarios.Created[0].ID())
}

func TestPullIncremental(t *testing.T) {
	f := newFixture(t)
	old := time.Now().Add(-2 * time.Hour)

	f.addRegistro(t, "reg-old", f.empresa1.ID, f.usuario1.ID, old)
	f.addRegistro(t, "reg-new", f.empresa1.ID, f.usuario1.ID, time.Now())

	touched := f.addRegistro(t, "reg-touched", f.empresa1.ID, f.usuario1.ID, old)
	require.NoError(t, f.db.GORM().Model(&touched).Update("descricao", "descricao revisada").Error)

	watermark := time.Now().Add(-time.Hour).UnixMilli()
	changes, _, err := f.svc.Pull(context.Background(), &watermark, f.empresa1.ID)
	require.NoError(t, err)

	registros := changes[cnst.TableRegistros]
	assert.Equal(t, []string{"reg-new"}, uuids(registros.Created))
	assert.Equal(t, []string{"reg-touched"}, uuids(registros.Updated))
}

func TestPullFotoPathPrecedence(t *testing.T) {
	f := newFixture(t)
	r := f.addRegistro(t, "reg-1", f.empresa1.ID, f.usuario1.ID, time.Now().Add(-time.Hour))

	both := database.FotoRegistro{UUID: "foto-both", RegistroID: r.ID, URLFoto: "https://cdn.example.com/a.jpg", PathLocal: "/sdcard/a.jpg"}
	localOnly := database.FotoRegistro{UUID: "foto-local", RegistroID: r.ID, PathLocal: "/sdcard/b.jpg"}
	require.NoError(t, f.db.GORM().Create(&both).Error)
	require.NoError(t, f.db.GORM().Create(&localOnly).Error)

	changes, _, err := f.svc.Pull(context.Background(), nil, f.empresa1.ID)
	require.NoError(t, err)

	byID := map[string]dto.RawRecord{}
	for _, rec := range changes[cnst.TableFotoRegistros].Created {
		byID[rec.ID()] = rec
	}
	assert.Equal(t, "https://cdn.example.com/a.jpg", byID["foto-both"].String("path_url"))
	assert.Equal(t, "/sdcard/b.jpg", byID["foto-local"].String("path_url"))
}

func TestPullTenantIsolation(t *testing.T) {
	f := newFixture(t)
	old := time.Now().Add(-time.Hour)
	r2 := f.addRegistro(t, "reg-other", f.empresa2.ID, f.usuario2.ID, old)
	foto := database.FotoRegistro{UUID: "foto-other", RegistroID: r2.ID, URLFoto: "u"}
	require.NoError(t, f.db.GORM().Create(&foto).Error)

	changes, _, err := f.svc.Pull(context.Background(), nil, f.empresa1.ID)
	require.NoError(t, err)

	assert.Empty(t, changes[cnst.TableRegistros].Created)
	assert.Empty(t, changes[cnst.TableFotoRegistros].Created)
	for _, u := range changes[cnst.TableUsuarios].Created {
		assert.NotEqual(t, "bruno@beta.com.br", u.String("email"))
	}
}
