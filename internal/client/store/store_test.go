package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/frotalog/registro/internal/common/cnst"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "client.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustCreate(t *testing.T, s *Store, tipo, descricao string) *Registro {
	t.Helper()
	r, err := s.CreateRegistro(context.Background(), CreateRegistroInput{
		EmpresaID: 1,
		UsuarioID: 1,
		Tipo:      tipo,
		DataHora:  time.Now(),
		Descricao: descricao,
	})
	require.NoError(t, err)
	return r
}

func TestCreateRegistro(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := mustCreate(t, s, "entrada", "compra de combustivel")
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, StatusCreated, r.Status)
	assert.False(t, r.Sincronizado)

	found, err := s.FindRegistro(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "compra de combustivel", found.Descricao)
}

func TestCreateRegistroValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateRegistro(ctx, CreateRegistroInput{Tipo: "COMPRA", Descricao: "descricao valida"})
	assert.Error(t, err)

	_, err = s.CreateRegistro(ctx, CreateRegistroInput{Tipo: "entrada", Descricao: "abc"})
	assert.Error(t, err)

	_, err = s.CreateRegistro(ctx, CreateRegistroInput{Tipo: "entrada", Descricao: "   ab   "})
	assert.Error(t, err)
}

func TestUpdateRegistroStatusTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := mustCreate(t, s, "entrada", "compra de combustivel")

	// Editing a never-pushed row keeps it in created.
	novo := "compra de combustivel aditivado"
	updated, err := s.UpdateRegistro(ctx, r.ID, UpdateRegistroInput{Descricao: &novo})
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, updated.Status)
	assert.Equal(t, novo, updated.Descricao)

	// Editing an acknowledged row moves it back to updated.
	require.NoError(t, s.db.Model(&Registro{}).Where("id = ?", r.ID).
		Updates(map[string]any{"status": StatusSynced, "sincronizado": true}).Error)
	tipo := "saida"
	updated, err = s.UpdateRegistro(ctx, r.ID, UpdateRegistroInput{Tipo: &tipo})
	require.NoError(t, err)
	assert.Equal(t, StatusUpdated, updated.Status)
	assert.False(t, updated.Sincronizado)
}

func TestUpdateRegistroNotFound(t *testing.T) {
	s := newTestStore(t)
	d := "qualquer descricao"
	_, err := s.UpdateRegistro(context.Background(), "missing", UpdateRegistroInput{Descricao: &d})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueryRegistros(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, "entrada", "compra de combustivel")
	mustCreate(t, s, "saida", "venda de sucata ferrosa")

	all, err := s.QueryRegistros(ctx, RegistroFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	saidas, err := s.QueryRegistros(ctx, RegistroFilter{Tipo: "saida"})
	require.NoError(t, err)
	require.Len(t, saidas, 1)
	assert.Equal(t, "venda de sucata ferrosa", saidas[0].Descricao)
}

func TestDeleteRegistroSoftDeletesWithFotos(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := mustCreate(t, s, "entrada", "compra de combustivel")
	foto, err := s.CreateFoto(ctx, r.ID, "/sdcard/nota.jpg")
	require.NoError(t, err)

	require.NoError(t, s.DeleteRegistro(ctx, r.ID))

	_, err = s.FindRegistro(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	fotos, err := s.ListFotos(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, fotos)

	// The tombstones survive as rows until a push acknowledges them.
	var reg Registro
	require.NoError(t, s.db.First(&reg, "id = ?", r.ID).Error)
	assert.Equal(t, StatusDeleted, reg.Status)
	var f FotoRegistro
	require.NoError(t, s.db.First(&f, "id = ?", foto.ID).Error)
	assert.Equal(t, StatusDeleted, f.Status)

	assert.ErrorIs(t, s.DeleteRegistro(ctx, r.ID), ErrNotFound)
}

func TestCreateFotoRequiresLiveParent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateFoto(ctx, "missing", "/sdcard/a.jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	r := mustCreate(t, s, "entrada", "compra de combustivel")
	_, err = s.CreateFoto(ctx, r.ID, "")
	assert.Error(t, err)

	require.NoError(t, s.DeleteRegistro(ctx, r.ID))
	_, err = s.CreateFoto(ctx, r.ID, "/sdcard/a.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubscribe(t *testing.T) {
	s := newTestStore(t)

	var fired int
	unsub := s.Subscribe(cnst.TableRegistros, func(table string) {
		assert.Equal(t, cnst.TableRegistros, table)
		fired++
	})

	mustCreate(t, s, "entrada", "compra de combustivel")
	assert.Equal(t, 1, fired)

	unsub()
	mustCreate(t, s, "saida", "venda de oleo usado")
	assert.Equal(t, 1, fired)
}
