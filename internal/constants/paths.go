package constants

// DefaultEnvPath is the default path to the .env file
const DefaultEnvPath = "./.env"

// DefaultConfigPath is the default path to the config.toml file
const DefaultConfigPath = "./config.toml"

// DefaultSchedulesPath is the default location of the schedule file
const DefaultSchedulesPath = "~/.pollbot/schedules.yaml"
