package config

// Application constants
const (
	AppName    = "dailyindex"
	AppVersion = "1.0.0"

	// AllIndices is the pseudo index selecting every known index
	AllIndices = "ALL"

	DefaultPort           = 8000
	DefaultSeedFile       = "data/daxsp.csv"
	DefaultLogFile        = "logs/app.log"
	DefaultMaxUploadBytes = 10 << 20 // 10MB
)
