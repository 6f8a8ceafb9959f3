package repository

import (
	"os"
	"testing"

	"betledger/config"
)

func TestMain(m *testing.M) {
	config.SetTestConfig(config.NewTestConfig())

	code := m.Run()

	config.ResetConfig()
	os.Exit(code)
}
