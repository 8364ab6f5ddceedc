package repository

import "fmt"

// StorageError - сбой ввода-вывода хранилища. Автоматических повторов нет.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, key CollectionKey, err error) error {
	return &StorageError{Op: op, Key: key.String(), Err: err}
}
