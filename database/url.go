package database

import (
	"strings"
)

// ConstructDatabaseURL joins a server URL with a database name.
// sslmode=disable is appended unless the URL already sets an sslmode;
// an empty name returns baseURL untouched.
func ConstructDatabaseURL(baseURL, databaseName string) string {
	if databaseName == "" {
		return baseURL
	}

	server, query, hasQuery := strings.Cut(strings.TrimRight(baseURL, "/"), "?")
	server = strings.TrimRight(server, "/")

	params := []string{}
	if hasQuery && query != "" {
		params = append(params, query)
	}
	if !strings.Contains(query, "sslmode=") {
		params = append(params, "sslmode=disable")
	}

	return server + "/" + databaseName + "?" + strings.Join(params, "&")
}
