package store

import "time"

// SyncStatus is the local lifecycle of a row: freshly created, changed since
// the last push, acknowledged by the server, or soft-deleted awaiting
// tombstone propagation.
type SyncStatus string

const (
	StatusCreated SyncStatus = "created"
	StatusUpdated SyncStatus = "updated"
	StatusSynced  SyncStatus = "synced"
	StatusDeleted SyncStatus = "deleted"
)

// Registro is the local replica of a launch record. Unlike the server's
// table, the primary key IS the opaque id; there is no internal numeric key.
type Registro struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	EmpresaID    uint      `json:"empresa_id" gorm:"index"`
	UsuarioID    uint      `json:"usuario_id" gorm:"index"`
	Tipo         string    `json:"tipo"`
	DataHora     time.Time `json:"data_hora"`
	Descricao    string    `json:"descricao"`
	Sincronizado bool      `json:"sincronizado"`
	Status       SyncStatus `json:"-" gorm:"index;default:'created'"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Registro) TableName() string { return "registros" }

// FotoRegistro is the local replica of a photo row. RegistroID holds the
// parent's opaque id.
type FotoRegistro struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RegistroID string    `json:"registro_id" gorm:"index;type:varchar(36)"`
	PathURL    string    `json:"path_url"`
	Status     SyncStatus `json:"-" gorm:"index;default:'created'"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (FotoRegistro) TableName() string { return "foto_registros" }

// Usuario is a read-only replica pulled from the server so lists can render
// user names offline. It is never part of the outgoing change set.
type Usuario struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Nome      string    `json:"nome"`
	Email     string    `json:"email"`
	EmpresaID uint      `json:"empresa_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Usuario) TableName() string { return "usuarios" }

// syncState is the single-row watermark entity. It is read and written only
// by the sync engine, never ambient global state.
type syncState struct {
	ID           uint `gorm:"primaryKey"`
	LastPulledAt *int64
}

func (syncState) TableName() string { return "sync_state" }
