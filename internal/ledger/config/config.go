package config

type Config struct {
	AuditAddr string
}
