package database

import (
	"time"

	"github.com/frotalog/registro/internal/common/cnst"
)

// Empresa is the tenant boundary. Every owned row carries an empresa id and
// no query may cross it.
type Empresa struct {
	ID        uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Nome      string `json:"nome" gorm:"type:varchar(255);not null"`
	CNPJ      string `json:"cnpj" gorm:"column:cnpj;type:varchar(18);uniqueIndex"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Empresa) TableName() string { return "empresas" }

// Usuario belongs to exactly one Empresa. Email is the login identifier.
type Usuario struct {
	ID        uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	Nome      string  `json:"nome" gorm:"type:varchar(255);not null"`
	Email     string  `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	SenhaHash string  `json:"-" gorm:"column:senha_hash;type:varchar(255);not null"`
	EmpresaID uint    `json:"empresa_id" gorm:"not null;index"`
	Empresa   Empresa `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Usuario) TableName() string { return cnst.TableUsuarios }

// Registro is a launch record. The numeric ID is server-internal and never
// leaves the database; UUID is the client-generated opaque id used on the wire.
type Registro struct {
	ID           uint              `json:"-" gorm:"primaryKey;autoIncrement"`
	UUID         string            `json:"id" gorm:"type:varchar(36);not null;uniqueIndex"`
	EmpresaID    uint              `json:"empresa_id" gorm:"not null;index;index:idx_registros_empresa_usuario,priority:1"`
	UsuarioID    uint              `json:"usuario_id" gorm:"not null;index:idx_registros_empresa_usuario,priority:2"`
	Tipo         cnst.TipoServidor `json:"tipo" gorm:"type:varchar(10);not null"`
	DataHora     time.Time         `json:"data_hora" gorm:"not null"`
	Descricao    string            `json:"descricao" gorm:"type:text;not null"`
	Sincronizado bool              `json:"sincronizado" gorm:"not null;default:false;index"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	Empresa      Empresa           `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Usuario      Usuario           `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Registro) TableName() string { return cnst.TableRegistros }

// FotoRegistro is a photo attached to a Registro. It has no empresa column of
// its own; tenancy is resolved through the owning Registro.
type FotoRegistro struct {
	ID         uint     `json:"-" gorm:"primaryKey;autoIncrement"`
	UUID       string   `json:"id" gorm:"type:varchar(36);not null;uniqueIndex"`
	RegistroID uint     `json:"-" gorm:"not null;index"`
	URLFoto    string   `json:"url_foto" gorm:"column:url_foto;type:varchar(500);not null"`
	PathLocal  string   `json:"path_local" gorm:"column:path_local;type:varchar(500)"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Registro   Registro `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (FotoRegistro) TableName() string { return cnst.TableFotoRegistros }
