package sync

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/frotalog/registro/internal/apiserver/database"
	"github.com/frotalog/registro/internal/common/cnst"
	"github.com/frotalog/registro/internal/common/dto"
)

// Service implements the pull and push halves of the sync protocol.
type Service struct {
	db     database.Database
	logger *zap.Logger
}

// NewService creates a new sync service
func NewService(db database.Database, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.Named("sync"),
	}
}

// Pull computes the set of rows the caller's tenant has not seen since the
// given watermark. A nil watermark means first sync: every owned row goes into
// the created bucket and the updated bucket is skipped, so a row that was both
// created and touched before the first pull is not delivered twice.
//
// The returned timestamp is captured before the queries run. A write landing
// while the queries execute is therefore re-delivered on the next cycle
// instead of being lost; pull application is idempotent so the duplicate is
// harmless.
func (s *Service) Pull(ctx context.Context, lastPulledAt *int64, empresaID uint) (dto.Changes, int64, error) {
	timestamp := time.Now().UnixMilli()

	g := s.db.GORM().WithContext(ctx)
	full := lastPulledAt == nil
	var since time.Time
	if !full {
		since = time.UnixMilli(*lastPulledAt)
	}

	changes := dto.Changes{}

	var registrosCreated []database.Registro
	q := g.Where("empresa_id = ?", empresaID)
	if !full {
		q = q.Where("created_at > ?", since)
	}
	if err := q.Find(&registrosCreated).Error; err != nil {
		return nil, 0, err
	}

	var registrosUpdated []database.Registro
	if !full {
		err := g.Where("empresa_id = ?", empresaID).
			Where("updated_at > ?", since).
			Where("updated_at > created_at").
			Find(&registrosUpdated).Error
		if err != nil {
			return nil, 0, err
		}
	}

	changes[cnst.TableRegistros] = dto.TableChanges{
		Created: mapRegistros(registrosCreated),
		Updated: mapRegistros(registrosUpdated),
		Deleted: []string{},
	}

	fotosCreated, err := s.fotoRows(g, empresaID, since, full, false)
	if err != nil {
		return nil, 0, err
	}
	var fotosUpdated []fotoRow
	if !full {
		fotosUpdated, err = s.fotoRows(g, empresaID, since, full, true)
		if err != nil {
			return nil, 0, err
		}
	}

	changes[cnst.TableFotoRegistros] = dto.TableChanges{
		Created: mapFotos(fotosCreated),
		Updated: mapFotos(fotosUpdated),
		Deleted: []string{},
	}

	usuariosCreated, usuariosUpdated, err := s.usuarioRows(g, empresaID, since, full)
	if err != nil {
		return nil, 0, err
	}

	changes[cnst.TableUsuarios] = dto.TableChanges{
		Created: mapUsuarios(usuariosCreated),
		Updated: mapUsuarios(usuariosUpdated),
		Deleted: []string{},
	}

	s.logger.Debug("pull computed",
		zap.Uint("empresa_id", empresaID),
		zap.Bool("full_resync", full),
		zap.Int("registros_created", len(registrosCreated)),
		zap.Int("registros_updated", len(registrosUpdated)),
		zap.Int("fotos_created", len(fotosCreated)),
		zap.Int("fotos_updated", len(fotosUpdated)))

	return changes, timestamp, nil
}

// fotoRow carries a photo row together with its parent's opaque id, which is
// what the wire uses for the registro reference.
type fotoRow struct {
	database.FotoRegistro
	RegistroUUID string
}

func (s *Service) fotoRows(g *gorm.DB, empresaID uint, since time.Time, full, updatedBucket bool) ([]fotoRow, error) {
	var rows []fotoRow
	q := g.Table(cnst.TableFotoRegistros).
		Select("foto_registros.*, registros.uuid AS registro_uuid").
		Joins("JOIN registros ON registros.id = foto_registros.registro_id").
		Where("registros.empresa_id = ?", empresaID)
	if updatedBucket {
		q = q.Where("foto_registros.updated_at > ?", since).
			Where("foto_registros.updated_at > foto_registros.created_at")
	} else if !full {
		q = q.Where("foto_registros.created_at > ?", since)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) usuarioRows(g *gorm.DB, empresaID uint, since time.Time, full bool) ([]database.Usuario, []database.Usuario, error) {
	var created []database.Usuario
	q := g.Where("empresa_id = ?", empresaID)
	if !full {
		q = q.Where("created_at > ?", since)
	}
	if err := q.Find(&created).Error; err != nil {
		return nil, nil, err
	}

	var updated []database.Usuario
	if !full {
		err := g.Where("empresa_id = ?", empresaID).
			Where("updated_at > ?", since).
			Where("updated_at > created_at").
			Find(&updated).Error
		if err != nil {
			return nil, nil, err
		}
	}
	return created, updated, nil
}

func mapRegistros(rows []database.Registro) []dto.RawRecord {
	out := make([]dto.RawRecord, 0, len(rows))
	for _, r := range rows {
		tipo, err := dto.TipoToClient(string(r.Tipo))
		if err != nil {
			// A value outside the bijection cannot be represented on the
			// wire; skip the row rather than ship a vocabulary the client
			// does not know.
			continue
		}
		out = append(out, dto.RawRecord{
			"id":           r.UUID,
			"empresa_id":   r.EmpresaID,
			"usuario_id":   r.UsuarioID,
			"tipo":         tipo.String(),
			"data_hora":    dto.Millis(r.DataHora),
			"descricao":    r.Descricao,
			"sincronizado": r.Sincronizado,
			"created_at":   dto.Millis(r.CreatedAt),
			"updated_at":   dto.Millis(r.UpdatedAt),
		})
	}
	return out
}

func mapFotos(rows []fotoRow) []dto.RawRecord {
	out := make([]dto.RawRecord, 0, len(rows))
	for _, f := range rows {
		// The two legacy location columns collapse to the client's single
		// path_url field; url_foto wins when both are set.
		pathURL := f.URLFoto
		if pathURL == "" {
			pathURL = f.PathLocal
		}
		out = append(out, dto.RawRecord{
			"id":          f.UUID,
			"registro_id": f.RegistroUUID,
			"path_url":    pathURL,
			"created_at":  dto.Millis(f.CreatedAt),
			"updated_at":  dto.Millis(f.UpdatedAt),
		})
	}
	return out
}

func mapUsuarios(rows []database.Usuario) []dto.RawRecord {
	out := make([]dto.RawRecord, 0, len(rows))
	for _, u := range rows {
		// usuarios have no uuid column; the wire id is the decimal form of
		// the server key.
		out = append(out, dto.RawRecord{
			"id":         strconv.FormatUint(uint64(u.ID), 10),
			"nome":       u.Nome,
			"email":      u.Email,
			"empresa_id": u.EmpresaID,
			"created_at": dto.Millis(u.CreatedAt),
			"updated_at": dto.Millis(u.UpdatedAt),
		})
	}
	return out
}
