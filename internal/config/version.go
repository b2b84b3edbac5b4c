package config

// Version is the application version. Release builds override it via
//
//	go build -ldflags "-X 'github.com/showsift/showsift/internal/config.Version=x.y.z'"
var Version = "dev"
