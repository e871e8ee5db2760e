package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"choreo-backend/internal/client"
)

var errNotLoggedIn = errors.New("not logged in: run `choreo login` first")

// session the persisted CLI state: server URL, username and token
type session struct {
	v    *viper.Viper
	path string
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".choreo.yaml"
	}
	return filepath.Join(home, ".choreo.yaml")
}

// loadSession reads the config file if it exists. CHOREO_* env vars and the
// --server flag override file values.
func loadSession(path, server string) (*session, error) {
	if path == "" {
		path = defaultConfigPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CHOREO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("server", client.DefaultBaseURL)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
	}

	if server != "" {
		v.Set("server", server)
	}
	return &session{v: v, path: path}, nil
}

func (s *session) server() string   { return s.v.GetString("server") }
func (s *session) token() string    { return s.v.GetString("token") }
func (s *session) username() string { return s.v.GetString("username") }

// client returns an API client carrying the stored token.
func (s *session) client() *client.Client {
	return client.New(s.server(), s.token(), nil)
}

// authedClient is client but fails early without a token.
func (s *session) authedClient() (*client.Client, error) {
	if s.token() == "" {
		return nil, errNotLoggedIn
	}
	return s.client(), nil
}

// save stores the login and writes the config file readable only by its owner.
func (s *session) save(username, token string) error {
	s.v.Set("username", username)
	s.v.Set("token", token)
	return s.write()
}

func (s *session) clear() error {
	s.v.Set("username", "")
	s.v.Set("token", "")
	return s.write()
}

func (s *session) write() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Chmod(s.path, 0o600)
}

func currentSession() (*session, error) {
	return loadSession(rootFlags.ConfigFile, rootFlags.Server)
}
