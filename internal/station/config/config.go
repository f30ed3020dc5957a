package config

type Config struct {
	StationsFile string
}
