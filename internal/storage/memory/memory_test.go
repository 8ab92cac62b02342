package memory

import (
	"testing"

	"github.com/fdg312/plateplan/internal/storage"
	"github.com/fdg312/plateplan/internal/storage/storagetest"
)

func TestMemoryStorageContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return New()
	})
}
