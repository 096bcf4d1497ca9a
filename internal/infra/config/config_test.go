package config

import (
	"reflect"
	"testing"
)

func TestStringListDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "comma list", input: "alegria, tristeza ,,miedo", want: []string{"alegria", "tristeza", "miedo"}},
		{name: "json array", input: `["Alegria","  calma "]`, want: []string{"Alegria", "calma"}},
		{name: "empty", input: "  ", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got StringList
			if err := got.Decode(tt.input); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual([]string(got), tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}

	var bad StringList
	if err := bad.Decode(`["unterminated`); err == nil {
		t.Fatal("expected json error")
	}
}

func TestReadFromEnv(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("EMOTIONS", `["alegria","calma"]`)
	t.Setenv("API_KEYS", "k1,k2")

	cfg, err := Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Emotions) != 2 || cfg.Emotions[1] != "calma" {
		t.Fatalf("unexpected emotions %v", cfg.Emotions)
	}
	if len(cfg.Auth.APIKeys) != 2 {
		t.Fatalf("unexpected api keys %v", cfg.Auth.APIKeys)
	}
	if cfg.Auth.JWTTTL.Hours() != 168 {
		t.Fatalf("expected 7 day default ttl, got %v", cfg.Auth.JWTTTL)
	}
}

func TestValidate(t *testing.T) {
	base := func() AppConfig {
		var cfg AppConfig
		cfg.Storage.Driver = DriverMemory
		cfg.Auth.JWTSecret = "s"
		cfg.Emotions = StringList{"alegria"}
		return cfg
	}
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{name: "ok", mutate: func(*AppConfig) {}},
		{name: "postgres without dsn", mutate: func(c *AppConfig) { c.Storage.Driver = DriverPostgres }, wantErr: true},
		{name: "mongo without uri", mutate: func(c *AppConfig) { c.Storage.Driver = DriverMongo }, wantErr: true},
		{name: "unknown driver", mutate: func(c *AppConfig) { c.Storage.Driver = "sqlite" }, wantErr: true},
		{name: "no jwt secret", mutate: func(c *AppConfig) { c.Auth.JWTSecret = "" }, wantErr: true},
		{name: "api keys without jwt secret", mutate: func(c *AppConfig) {
			c.Auth.JWTSecret = ""
			c.Auth.APIKeys = StringList{"k1"}
		}, wantErr: true},
		{name: "no emotions", mutate: func(c *AppConfig) { c.Emotions = nil }, wantErr: true},
		{name: "endpoint without secret", mutate: func(c *AppConfig) { c.Reflection.Endpoint = "http://ia" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
