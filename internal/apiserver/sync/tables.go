package sync

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/frotalog/registro/internal/apiserver/database"
	"github.com/frotalog/registro/internal/common/cnst"
	"github.com/frotalog/registro/internal/common/dto"
)

// tableHandler applies one table's pushed rows. The set is closed: adding a
// table to the protocol means adding a handler here and nothing else.
type tableHandler interface {
	// upsert inserts or updates one row, keyed by opaque id within the
	// caller's tenant. The tenant is always the authenticated one; any tenant
	// value inside the row is ignored.
	upsert(tx *gorm.DB, empresaID uint, row dto.RawRecord) error

	// remove deletes the row with the given opaque id if it belongs to the
	// caller's tenant. Deleting an absent row is not an error; the client may
	// replay tombstones it has not had acknowledged yet.
	remove(tx *gorm.DB, empresaID uint, id string) error
}

// tableOrder fixes the application order so parents exist before dependents.
var tableOrder = []string{cnst.TableUsuarios, cnst.TableRegistros, cnst.TableFotoRegistros}

var tableHandlers = map[string]tableHandler{
	cnst.TableUsuarios:      usuarioHandler{},
	cnst.TableRegistros:     registroHandler{},
	cnst.TableFotoRegistros: fotoHandler{},
}

type registroHandler struct{}

func (registroHandler) upsert(tx *gorm.DB, empresaID uint, row dto.RawRecord) error {
	tipo, err := dto.TipoToServer(row.String("tipo"))
	if err != nil {
		return err
	}

	descricao := row.String("descricao")
	if len(strings.TrimSpace(descricao)) < cnst.DescricaoMinLen {
		return fmt.Errorf("descricao shorter than %d characters", cnst.DescricaoMinLen)
	}

	dataHora, ok := row.Time("data_hora")
	if !ok {
		return errors.New("data_hora missing or not a timestamp")
	}

	usuarioID, ok := row.Int64("usuario_id")
	if !ok {
		return errors.New("usuario_id missing or not a number")
	}

	// The owning user must exist inside the caller's tenant; a reference into
	// another tenant is indistinguishable from an unknown user.
	var usuario database.Usuario
	err = tx.Where("id = ? AND empresa_id = ?", usuarioID, empresaID).First(&usuario).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("usuario %d not found", usuarioID)
		}
		return err
	}

	var existing database.Registro
	err = tx.Where("uuid = ? AND empresa_id = ?", row.ID(), empresaID).First(&existing).Error
	switch {
	case err == nil:
		return tx.Model(&existing).Updates(map[string]any{
			"tipo":         tipo,
			"data_hora":    dataHora,
			"descricao":    descricao,
			"usuario_id":   usuario.ID,
			"sincronizado": true,
		}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		registro := database.Registro{
			UUID:         row.ID(),
			EmpresaID:    empresaID,
			UsuarioID:    usuario.ID,
			Tipo:         tipo,
			DataHora:     dataHora,
			Descricao:    descricao,
			Sincronizado: true,
		}
		// A uuid held by another tenant trips the unique index here and the
		// row is rejected without revealing who owns it.
		return tx.Create(&registro).Error
	default:
		return err
	}
}

func (registroHandler) remove(tx *gorm.DB, empresaID uint, id string) error {
	var registro database.Registro
	err := tx.Where("uuid = ? AND empresa_id = ?", id, empresaID).First(&registro).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if err := tx.Where("registro_id = ?", registro.ID).Delete(&database.FotoRegistro{}).Error; err != nil {
		return err
	}
	return tx.Delete(&registro).Error
}

type fotoHandler struct{}

func (fotoHandler) upsert(tx *gorm.DB, empresaID uint, row dto.RawRecord) error {
	parentUUID := row.String("registro_id")
	if parentUUID == "" {
		return errors.New("registro_id missing")
	}

	// Resolve the parent within the caller's tenant before any write; a photo
	// is never written orphaned or across tenants.
	var parent database.Registro
	err := tx.Where("uuid = ? AND empresa_id = ?", parentUUID, empresaID).First(&parent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("registro %s not found", parentUUID)
		}
		return err
	}

	pathURL := row.String("path_url")
	if pathURL == "" {
		return errors.New("path_url missing")
	}

	var existing database.FotoRegistro
	err = tx.Where("uuid = ?", row.ID()).First(&existing).Error
	switch {
	case err == nil:
		if err := fotoTenantCheck(tx, &existing, empresaID); err != nil {
			return err
		}
		return tx.Model(&existing).Updates(map[string]any{
			"registro_id": parent.ID,
			"url_foto":    pathURL,
		}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		foto := database.FotoRegistro{
			UUID:       row.ID(),
			RegistroID: parent.ID,
			URLFoto:    pathURL,
			PathLocal:  row.String("path_local"),
		}
		return tx.Create(&foto).Error
	default:
		return err
	}
}

func (fotoHandler) remove(tx *gorm.DB, empresaID uint, id string) error {
	var foto database.FotoRegistro
	err := tx.Where("uuid = ?", id).First(&foto).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if err := fotoTenantCheck(tx, &foto, empresaID); err != nil {
		return err
	}
	return tx.Delete(&foto).Error
}

// fotoTenantCheck verifies that a photo's owning chain resolves to the
// caller's tenant. The error deliberately reads like "not found" so cross-
// tenant probing learns nothing.
func fotoTenantCheck(tx *gorm.DB, foto *database.FotoRegistro, empresaID uint) error {
	var n int64
	err := tx.Model(&database.Registro{}).
		Where("id = ? AND empresa_id = ?", foto.RegistroID, empresaID).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("foto_registro %s not found", foto.UUID)
	}
	return nil
}

type usuarioHandler struct{}

// usuarios have no uuid column; the wire id is the decimal server key, so the
// handler can only update users that already exist inside the tenant. Users
// are provisioned administratively, never created from a device.
func (usuarioHandler) upsert(tx *gorm.DB, empresaID uint, row dto.RawRecord) error {
	id, err := strconv.ParseUint(row.ID(), 10, 64)
	if err != nil {
		return fmt.Errorf("usuario id %q is not numeric", row.ID())
	}

	var usuario database.Usuario
	err = tx.Where("id = ? AND empresa_id = ?", id, empresaID).First(&usuario).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("usuario %d not found", id)
		}
		return err
	}

	updates := map[string]any{}
	if nome := row.String("nome"); nome != "" {
		updates["nome"] = nome
	}
	if email := row.String("email"); email != "" {
		updates["email"] = email
	}
	if len(updates) == 0 {
		return nil
	}
	return tx.Model(&usuario).Updates(updates).Error
}

func (usuarioHandler) remove(tx *gorm.DB, empresaID uint, id string) error {
	return errors.New("usuarios cannot be deleted through sync")
}
