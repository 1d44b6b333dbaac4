package services

import (
	"errors"
	"fmt"
)

// ValidationError: argumento ausente ou inválido, sempre corrigível pelo chamador.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError: entidade local referenciada não existe (ou não pertence ao tenant).
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s não encontrado: %s", e.Entity, e.Key)
}

// StoreError: falha de persistência local.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ErrDuplicate marca violação de unicidade (ex.: duas conversas para o mesmo telefone).
var ErrDuplicate = errors.New("registro duplicado")

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
