package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/placar-dev/placar/internal/assert"
	"github.com/placar-dev/placar/internal/money"
)

// Transaction kinds
const (
	TipoReceita = "receita"
	TipoGasto   = "gasto"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	assert.Length(b.ID, 26)
	return nil
}

// User is an account holder. Salario is the base monthly income that the
// dashboard adds to every month's receitas.
type User struct {
	BaseModel
	Email        string      `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string      `json:"-" gorm:"not null"`
	Salario      money.Cents `json:"salario" gorm:"not null;default:0"`
	UpdatedAt    time.Time   `json:"updated_at" gorm:"autoUpdateTime"`

	Transacoes []Transacao    `json:"transacoes,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	Cartoes    []CartaoFatura `json:"cartoes,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// Transacao is a single income or expense entry
type Transacao struct {
	BaseModel
	UserID    string      `json:"user_id" gorm:"type:varchar(26);not null;index"`
	Tipo      string      `json:"tipo" gorm:"type:varchar(16);not null"`
	Valor     money.Cents `json:"valor" gorm:"not null"`
	Categoria *string     `json:"categoria"`
	Descricao *string     `json:"descricao"`
	Data      Date        `json:"data" gorm:"type:date;not null;index"`
	UpdatedAt time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName keeps the Portuguese plural
func (Transacao) TableName() string { return "transacoes" }

// CartaoFatura is a credit card bill for one reference month
type CartaoFatura struct {
	BaseModel
	UserID      string      `json:"user_id" gorm:"type:varchar(26);not null;index"`
	Instituicao string      `json:"instituicao" gorm:"not null"`
	Valor       money.Cents `json:"valor" gorm:"not null"`
	Mes         int         `json:"mes" gorm:"not null"`
	Ano         int         `json:"ano" gorm:"not null"`
	Pago        bool        `json:"pago" gorm:"not null;default:false"`
	UpdatedAt   time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName keeps the Portuguese plural
func (CartaoFatura) TableName() string { return "cartoes" }

// Fechamento is the frozen dashboard summary of a past month, written by
// the month-close worker.
type Fechamento struct {
	BaseModel
	UserID              string      `json:"user_id" gorm:"type:varchar(26);not null;uniqueIndex:idx_fechamento_periodo"`
	Mes                 int         `json:"mes" gorm:"not null;uniqueIndex:idx_fechamento_periodo"`
	Ano                 int         `json:"ano" gorm:"not null;uniqueIndex:idx_fechamento_periodo"`
	TotalReceitas       money.Cents `json:"total_receitas"`
	TotalGastos         money.Cents `json:"total_gastos"`
	TotalDividasAbertas money.Cents `json:"total_dividas_abertas"`
	SaldoAtual          money.Cents `json:"saldo_atual"`
	PlacarDividas       money.Cents `json:"placar_dividas"`
	UpdatedAt           time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName keeps the Portuguese plural
func (Fechamento) TableName() string { return "fechamentos" }

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&User{}, &Transacao{}, &CartaoFatura{}, &Fechamento{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}

// FindByIDWithPreload finds a record by ID with preloading
func FindByIDWithPreload[T any](db *gorm.DB, id string, model *T, preloads ...string) error {
	query := db
	for _, preload := range preloads {
		query = query.Preload(preload)
	}
	return query.Where("id = ?", id).First(model).Error
}
