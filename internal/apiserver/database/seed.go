package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/frotalog/registro/internal/common/cnst"
)

// Seed inserts two tenants with one user each plus a couple of launch records,
// mirroring the test fixtures the mobile app is developed against. It is
// idempotent: an already-seeded database is left alone.
func Seed(ctx context.Context, db Database) error {
	g := db.GORM().WithContext(ctx)

	var count int64
	if err := g.Model(&Empresa{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		empresas := []Empresa{
			{Nome: "Transportes Alfa", CNPJ: "12.345.678/0001-90"},
			{Nome: "Logistica Beta", CNPJ: "98.765.432/0001-10"},
		}
		if err := tx.Create(&empresas).Error; err != nil {
			return err
		}

		usuarios := []Usuario{
			{Nome: "Ana Souza", Email: "ana@alfa.com.br", SenhaHash: string(hash), EmpresaID: empresas[0].ID},
			{Nome: "Bruno Lima", Email: "bruno@beta.com.br", SenhaHash: string(hash), EmpresaID: empresas[1].ID},
		}
		if err := tx.Create(&usuarios).Error; err != nil {
			return err
		}

		registros := []Registro{
			{
				UUID:      uuid.NewString(),
				EmpresaID: empresas[0].ID,
				UsuarioID: usuarios[0].ID,
				Tipo:      cnst.TipoCompra,
				DataHora:  time.Now(),
				Descricao: "Carga recebida no deposito central",
			},
			{
				UUID:      uuid.NewString(),
				EmpresaID: empresas[0].ID,
				UsuarioID: usuarios[0].ID,
				Tipo:      cnst.TipoVenda,
				DataHora:  time.Now(),
				Descricao: "Saida para entrega na zona norte",
			},
		}
		return tx.Create(&registros).Error
	})
}
