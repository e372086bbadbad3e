package cmd

import (
	"fmt"
	"os"

	"github.com/litehttp/authcore/internal/identity"
)

// loadStore reads the identity store at usersFile, or returns a fresh
// empty Store when the file does not exist yet (authtool's first run
// against a new deployment).
func loadStore() (*identity.Store, error) {
	store := identity.New()
	if _, err := os.Stat(usersFile); os.IsNotExist(err) {
		return store, nil
	}
	if err := store.Load(usersFile); err != nil {
		return nil, fmt.Errorf("load %s: %w", usersFile, err)
	}
	return store, nil
}

func saveStore(store *identity.Store) error {
	if err := store.Save(usersFile); err != nil {
		return fmt.Errorf("save %s: %w", usersFile, err)
	}
	return nil
}
