package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/frotalog/registro/internal/common/cnst"
)

// ErrNotFound is returned when a lookup matches no live row.
var ErrNotFound = errors.New("record not found")

// StorageError wraps a failure of the underlying embedded database. A failed
// operation is rolled back in full; observers never see partial writes.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// Store is the device-local change tracker. Every row carries a SyncStatus
// and mutations are atomic per call.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger

	subMu sync.Mutex
	subs  map[int]subscription
	nextSub int
}

type subscription struct {
	table string
	fn    func(table string)
}

// Open opens (or creates) the embedded database at path and migrates its
// schema. Use ":memory:" for tests.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, storageErr("open", err)
	}
	if err := db.AutoMigrate(&Registro{}, &FotoRegistro{}, &Usuario{}, &syncState{}); err != nil {
		return nil, storageErr("migrate", err)
	}
	return &Store{
		db:     db,
		logger: logger.Named("store"),
		subs:   map[int]subscription{},
	}, nil
}

// Close closes the embedded database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Subscribe registers fn to be called after every committed change to the
// given table. It returns an unsubscribe function. Callbacks run on the
// mutating goroutine after the transaction commits, never mid-write.
func (s *Store) Subscribe(table string, fn func(table string)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = subscription{table: table, fn: fn}
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify(tables ...string) {
	s.subMu.Lock()
	var fire []func()
	for _, sub := range s.subs {
		for _, t := range tables {
			if sub.table == t {
				sub := sub
				t := t
				fire = append(fire, func() { sub.fn(t) })
			}
		}
	}
	s.subMu.Unlock()
	for _, f := range fire {
		f()
	}
}

// CreateRegistroInput carries the caller-supplied fields of a new launch.
type CreateRegistroInput struct {
	EmpresaID uint
	UsuarioID uint
	Tipo      string
	DataHora  time.Time
	Descricao string
}

// CreateRegistro inserts a new launch with a fresh opaque id and created
// status.
func (s *Store) CreateRegistro(ctx context.Context, in CreateRegistroInput) (*Registro, error) {
	if err := validateTipo(in.Tipo); err != nil {
		return nil, err
	}
	if err := validateDescricao(in.Descricao); err != nil {
		return nil, err
	}

	registro := &Registro{
		ID:        uuid.NewString(),
		EmpresaID: in.EmpresaID,
		UsuarioID: in.UsuarioID,
		Tipo:      in.Tipo,
		DataHora:  in.DataHora,
		Descricao: in.Descricao,
		Status:    StatusCreated,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(registro).Error
	})
	if err != nil {
		return nil, storageErr("create registro", err)
	}
	s.notify(cnst.TableRegistros)
	return registro, nil
}

// UpdateRegistroInput carries the updatable fields of a launch. Nil pointers
// leave the field untouched.
type UpdateRegistroInput struct {
	Tipo      *string
	DataHora  *time.Time
	Descricao *string
}

// UpdateRegistro mutates a launch and clears its synchronized state. A row
// already acknowledged by the server moves back to updated.
func (s *Store) UpdateRegistro(ctx context.Context, id string, in UpdateRegistroInput) (*Registro, error) {
	if in.Tipo != nil {
		if err := validateTipo(*in.Tipo); err != nil {
			return nil, err
		}
	}
	if in.Descricao != nil {
		if err := validateDescricao(*in.Descricao); err != nil {
			return nil, err
		}
	}

	var registro Registro
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND status <> ?", id, StatusDeleted).First(&registro).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if in.Tipo != nil {
			registro.Tipo = *in.Tipo
		}
		if in.DataHora != nil {
			registro.DataHora = *in.DataHora
		}
		if in.Descricao != nil {
			registro.Descricao = *in.Descricao
		}
		// A never-pushed row stays in created; the server has no id to
		// update yet.
		if registro.Status == StatusSynced {
			registro.Status = StatusUpdated
		}
		registro.Sincronizado = false
		return tx.Save(&registro).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("update registro", err)
	}
	s.notify(cnst.TableRegistros)
	return &registro, nil
}

// FindRegistro returns a live (not soft-deleted) launch by id.
func (s *Store) FindRegistro(ctx context.Context, id string) (*Registro, error) {
	var registro Registro
	err := s.db.WithContext(ctx).
		Where("id = ? AND status <> ?", id, StatusDeleted).
		First(&registro).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("find registro", err)
	}
	return &registro, nil
}

// RegistroFilter narrows QueryRegistros. Zero values mean "any".
type RegistroFilter struct {
	Tipo      string
	UsuarioID uint
}

// QueryRegistros lists live launches, newest first.
func (s *Store) QueryRegistros(ctx context.Context, f RegistroFilter) ([]Registro, error) {
	q := s.db.WithContext(ctx).Where("status <> ?", StatusDeleted)
	if f.Tipo != "" {
		q = q.Where("tipo = ?", f.Tipo)
	}
	if f.UsuarioID != 0 {
		q = q.Where("usuario_id = ?", f.UsuarioID)
	}
	var registros []Registro
	if err := q.Order("data_hora desc").Find(&registros).Error; err != nil {
		return nil, storageErr("query registros", err)
	}
	return registros, nil
}

// DeleteRegistro soft-deletes a launch and its photos. The tombstones are
// excluded from queries but kept until the next successful push acknowledges
// them.
func (s *Store) DeleteRegistro(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Registro{}).
			Where("id = ? AND status <> ?", id, StatusDeleted).
			Update("status", StatusDeleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&FotoRegistro{}).
			Where("registro_id = ? AND status <> ?", id, StatusDeleted).
			Update("status", StatusDeleted).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return storageErr("delete registro", err)
	}
	s.notify(cnst.TableRegistros, cnst.TableFotoRegistros)
	return nil
}

// CreateFoto attaches a photo to a live launch.
func (s *Store) CreateFoto(ctx context.Context, registroID, pathURL string) (*FotoRegistro, error) {
	if pathURL == "" {
		return nil, errors.New("path_url must not be empty")
	}

	foto := &FotoRegistro{
		ID:         uuid.NewString(),
		RegistroID: registroID,
		PathURL:    pathURL,
		Status:     StatusCreated,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&Registro{}).
			Where("id = ? AND status <> ?", registroID, StatusDeleted).
			Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return tx.Create(foto).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("create foto", err)
	}
	s.notify(cnst.TableFotoRegistros)
	return foto, nil
}

// ListFotos returns the live photos of a launch.
func (s *Store) ListFotos(ctx context.Context, registroID string) ([]FotoRegistro, error) {
	var fotos []FotoRegistro
	err := s.db.WithContext(ctx).
		Where("registro_id = ? AND status <> ?", registroID, StatusDeleted).
		Order("created_at asc").
		Find(&fotos).Error
	if err != nil {
		return nil, storageErr("list fotos", err)
	}
	return fotos, nil
}

// DeleteFoto soft-deletes one photo.
func (s *Store) DeleteFoto(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&FotoRegistro{}).
		Where("id = ? AND status <> ?", id, StatusDeleted).
		Update("status", StatusDeleted)
	if res.Error != nil {
		return storageErr("delete foto", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.notify(cnst.TableFotoRegistros)
	return nil
}

// QueryUsuarios lists the pulled user replicas.
func (s *Store) QueryUsuarios(ctx context.Context) ([]Usuario, error) {
	var usuarios []Usuario
	if err := s.db.WithContext(ctx).Order("nome asc").Find(&usuarios).Error; err != nil {
		return nil, storageErr("query usuarios", err)
	}
	return usuarios, nil
}

func validateTipo(tipo string) error {
	if tipo != cnst.TipoEntrada.String() && tipo != cnst.TipoSaida.String() {
		return fmt.Errorf("tipo must be %s or %s", cnst.TipoEntrada, cnst.TipoSaida)
	}
	return nil
}

func validateDescricao(descricao string) error {
	if len(strings.TrimSpace(descricao)) < cnst.DescricaoMinLen {
		return fmt.Errorf("descricao must have at least %d characters", cnst.DescricaoMinLen)
	}
	return nil
}
