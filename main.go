package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
)

var (
	version     = flag.Bool("version", false, "Print version info")
	help        = flag.Bool("help", false, "Print help")
	logLevel    = flag.Int("log", 3, "Log level (0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG)")
	configPath  = flag.String("config", "dash-service.yaml", "Config file path")
	redisServer = flag.String("redis_server", "", "Redis server address (overrides config)")
	redisPort   = flag.Int("redis_port", 0, "Redis server port (overrides config)")
	device      = flag.String("device", "", "CAN device: interface name or serial adapter path (overrides config)")
)

const (
	ProjectName    = "dash-service"
	ProjectVersion = "1.0.0"
)

func printVersion() {
	fmt.Printf("%s v%s\n", ProjectName, ProjectVersion)
}

func printHelp() {
	printVersion()
	flag.PrintDefaults()
}

func main() {
	flag.Parse()

	if *version {
		printVersion()
		os.Exit(0)
	}

	if *help {
		printHelp()
		os.Exit(0)
	}

	// Validate log level
	if *logLevel < 0 || *logLevel > 4 {
		log.Fatalf("invalid log level %d", *logLevel)
	}

	opts := &Options{
		LogLevel:        LogLevel(*logLevel),
		ConfigPath:      *configPath,
		RedisServerAddr: *redisServer,
		RedisServerPort: uint16(*redisPort),
		Device:          *device,
	}

	app, err := NewDashboardApp(opts)
	if err != nil {
		log.Fatalf("failed to create dashboard app: %v", err)
	}
	defer app.Destroy()

	// Handle SIGINT and SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Run until signal received
	<-sigChan
}
