package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frotalog/registro/internal/common/cnst"
	"github.com/frotalog/registro/internal/common/dto"
)

// PendingChanges collects every unsynchronized row into a wire change set:
// created and updated rows in full, soft-deleted rows as bare ids. Both
// tracked tables are always present so the push body satisfies the protocol's
// non-empty shape even when nothing changed.
func (s *Store) PendingChanges(ctx context.Context) (dto.Changes, error) {
	changes := dto.Changes{}

	var registros []Registro
	if err := s.db.WithContext(ctx).Where("status <> ?", StatusSynced).Find(&registros).Error; err != nil {
		return nil, storageErr("pending registros", err)
	}
	rc := dto.TableChanges{Created: []dto.RawRecord{}, Updated: []dto.RawRecord{}, Deleted: []string{}}
	for _, r := range registros {
		switch r.Status {
		case StatusCreated:
			rc.Created = append(rc.Created, registroToWire(r))
		case StatusUpdated:
			rc.Updated = append(rc.Updated, registroToWire(r))
		case StatusDeleted:
			rc.Deleted = append(rc.Deleted, r.ID)
		}
	}
	changes[cnst.TableRegistros] = rc

	var fotos []FotoRegistro
	if err := s.db.WithContext(ctx).Where("status <> ?", StatusSynced).Find(&fotos).Error; err != nil {
		return nil, storageErr("pending fotos", err)
	}
	fc := dto.TableChanges{Created: []dto.RawRecord{}, Updated: []dto.RawRecord{}, Deleted: []string{}}
	for _, f := range fotos {
		switch f.Status {
		case StatusCreated:
			fc.Created = append(fc.Created, fotoToWire(f))
		case StatusUpdated:
			fc.Updated = append(fc.Updated, fotoToWire(f))
		case StatusDeleted:
			fc.Deleted = append(fc.Deleted, f.ID)
		}
	}
	changes[cnst.TableFotoRegistros] = fc

	return changes, nil
}

// ApplyPull merges a pull response into the local replica inside one
// transaction: created and updated buckets are upserted by opaque id, deleted
// ids are removed outright. Applying the same response twice is a no-op, so a
// replayed pull after a failed push is harmless.
func (s *Store) ApplyPull(ctx context.Context, changes dto.Changes) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for table, tc := range changes {
			switch table {
			case cnst.TableRegistros:
				for _, row := range append(tc.Created, tc.Updated...) {
					if err := upsertRegistroFromWire(tx, row); err != nil {
						return err
					}
				}
				if len(tc.Deleted) > 0 {
					if err := tx.Where("id IN ?", tc.Deleted).Delete(&Registro{}).Error; err != nil {
						return err
					}
				}
			case cnst.TableFotoRegistros:
				for _, row := range append(tc.Created, tc.Updated...) {
					if err := upsertFotoFromWire(tx, row); err != nil {
						return err
					}
				}
				if len(tc.Deleted) > 0 {
					if err := tx.Where("id IN ?", tc.Deleted).Delete(&FotoRegistro{}).Error; err != nil {
						return err
					}
				}
			case cnst.TableUsuarios:
				for _, row := range append(tc.Created, tc.Updated...) {
					if err := upsertUsuarioFromWire(tx, row); err != nil {
						return err
					}
				}
			default:
				// Tables this replica does not track are skipped, not an
				// error; the server may know more tables than the device.
				s.logger.Debug("ignoring unknown pulled table")
			}
		}
		return nil
	})
	if err != nil {
		return storageErr("apply pull", err)
	}
	s.notify(cnst.TableRegistros, cnst.TableFotoRegistros, cnst.TableUsuarios)
	return nil
}

// MarkSynced acknowledges a pushed change set: every pushed row whose id is
// not in rejected becomes synced, and acknowledged tombstones are dropped.
// Rejected rows keep their status and are retried on the next cycle.
func (s *Store) MarkSynced(ctx context.Context, pushed dto.Changes, rejected []string) error {
	rejectedSet := make(map[string]struct{}, len(rejected))
	for _, id := range rejected {
		rejectedSet[id] = struct{}{}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for table, tc := range pushed {
			var model any
			switch table {
			case cnst.TableRegistros:
				model = &Registro{}
			case cnst.TableFotoRegistros:
				model = &FotoRegistro{}
			default:
				continue
			}

			var acked []string
			for _, row := range append(tc.Created, tc.Updated...) {
				if _, ok := rejectedSet[row.ID()]; !ok {
					acked = append(acked, row.ID())
				}
			}
			if len(acked) > 0 {
				updates := map[string]any{"status": StatusSynced}
				if table == cnst.TableRegistros {
					updates["sincronizado"] = true
				}
				if err := tx.Model(model).Where("id IN ?", acked).Updates(updates).Error; err != nil {
					return err
				}
			}

			var buried []string
			for _, id := range tc.Deleted {
				if _, ok := rejectedSet[id]; !ok {
					buried = append(buried, id)
				}
			}
			if len(buried) > 0 {
				if err := tx.Where("id IN ?", buried).Delete(model).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return storageErr("mark synced", err)
	}
	s.notify(cnst.TableRegistros, cnst.TableFotoRegistros)
	return nil
}

// Watermark returns the persisted lastPulledAt value, nil before the first
// successful cycle.
func (s *Store) Watermark(ctx context.Context) (*int64, error) {
	var state syncState
	err := s.db.WithContext(ctx).First(&state, 1).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageErr("read watermark", err)
	}
	return state.LastPulledAt, nil
}

// SetWatermark persists a new lastPulledAt value.
func (s *Store) SetWatermark(ctx context.Context, ms int64) error {
	state := syncState{ID: 1, LastPulledAt: &ms}
	err := s.db.WithContext(ctx).Save(&state).Error
	if err != nil {
		return storageErr("write watermark", err)
	}
	return nil
}

func registroToWire(r Registro) dto.RawRecord {
	return dto.RawRecord{
		"id":           r.ID,
		"empresa_id":   r.EmpresaID,
		"usuario_id":   r.UsuarioID,
		"tipo":         r.Tipo,
		"data_hora":    dto.Millis(r.DataHora),
		"descricao":    r.Descricao,
		"sincronizado": r.Sincronizado,
		"created_at":   dto.Millis(r.CreatedAt),
		"updated_at":   dto.Millis(r.UpdatedAt),
	}
}

func fotoToWire(f FotoRegistro) dto.RawRecord {
	return dto.RawRecord{
		"id":          f.ID,
		"registro_id": f.RegistroID,
		"path_url":    f.PathURL,
		"created_at":  dto.Millis(f.CreatedAt),
		"updated_at":  dto.Millis(f.UpdatedAt),
	}
}

func upsertRegistroFromWire(tx *gorm.DB, row dto.RawRecord) error {
	empresaID, _ := row.Int64("empresa_id")
	usuarioID, _ := row.Int64("usuario_id")
	dataHora, _ := row.Time("data_hora")

	registro := Registro{
		ID:           row.ID(),
		EmpresaID:    uint(empresaID),
		UsuarioID:    uint(usuarioID),
		Tipo:         row.String("tipo"),
		DataHora:     dataHora,
		Descricao:    row.String("descricao"),
		Sincronizado: true,
		Status:       StatusSynced,
	}

	var existing Registro
	err := tx.First(&existing, "id = ?", registro.ID).Error
	switch {
	case err == nil:
		return tx.Model(&existing).Updates(map[string]any{
			"empresa_id":   registro.EmpresaID,
			"usuario_id":   registro.UsuarioID,
			"tipo":         registro.Tipo,
			"data_hora":    registro.DataHora,
			"descricao":    registro.Descricao,
			"sincronizado": true,
			"status":       StatusSynced,
		}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return tx.Create(&registro).Error
	default:
		return err
	}
}

func upsertFotoFromWire(tx *gorm.DB, row dto.RawRecord) error {
	foto := FotoRegistro{
		ID:         row.ID(),
		RegistroID: row.String("registro_id"),
		PathURL:    row.String("path_url"),
		Status:     StatusSynced,
	}

	var existing FotoRegistro
	err := tx.First(&existing, "id = ?", foto.ID).Error
	switch {
	case err == nil:
		return tx.Model(&existing).Updates(map[string]any{
			"registro_id": foto.RegistroID,
			"path_url":    foto.PathURL,
			"status":      StatusSynced,
		}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return tx.Create(&foto).Error
	default:
		return err
	}
}

func upsertUsuarioFromWire(tx *gorm.DB, row dto.RawRecord) error {
	empresaID, _ := row.Int64("empresa_id")
	usuario := Usuario{
		ID:        row.ID(),
		Nome:      row.String("nome"),
		Email:     row.String("email"),
		EmpresaID: uint(empresaID),
	}

	var existing Usuario
	err := tx.First(&existing, "id = ?", usuario.ID).Error
	switch {
	case err == nil:
		return tx.Model(&existing).Updates(map[string]any{
			"nome":       usuario.Nome,
			"email":      usuario.Email,
			"empresa_id": usuario.EmpresaID,
		}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		return tx.Create(&usuario).Error
	default:
		return err
	}
}
