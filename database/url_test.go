package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructDatabaseURL(t *testing.T) {
	tests := []struct {
		name         string
		baseURL      string
		databaseName string
		expected     string
	}{
		{
			name:     "no database name keeps url",
			baseURL:  "postgres://user:pass@db:5432/ledger",
			expected: "postgres://user:pass@db:5432/ledger",
		},
		{
			name:         "appends database and sslmode",
			baseURL:      "postgres://user:pass@db:5432/",
			databaseName: "betledger",
			expected:     "postgres://user:pass@db:5432/betledger?sslmode=disable",
		},
		{
			name:         "keeps existing query parameters",
			baseURL:      "postgres://user:pass@db:5432?sslmode=require",
			databaseName: "betledger",
			expected:     "postgres://user:pass@db:5432/betledger?sslmode=require",
		},
		{
			name:         "adds sslmode after other parameters",
			baseURL:      "postgres://user:pass@db:5432?application_name=ledger",
			databaseName: "betledger",
			expected:     "postgres://user:pass@db:5432/betledger?application_name=ledger&sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ConstructDatabaseURL(tt.baseURL, tt.databaseName))
		})
	}
}
