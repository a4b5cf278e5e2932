package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the name of the rotating log file inside the log directory.
const FileName = "sla-mcp.log"

// Init initializes the global logger with dual sinks: os.Stderr and a rotating
// file. Stdout stays untouched because the MCP transport owns it.
func Init(verbose bool) error {
	// Init runs before config.Load, so LOGS_FOLDER may only be known from the binary's .env.
	exePath, err := os.Executable()
	if err == nil {
		_ = godotenv.Load(filepath.Join(filepath.Dir(exePath), ".env"))
	}

	zerolog.SetGlobalLevel(Level(verbose, os.Getenv("LOG_LEVEL")))

	logDir := os.Getenv("LOGS_FOLDER")
	if logDir == "" {
		switch {
		case os.Getenv("DATA_PATH") != "":
			logDir = filepath.Join(os.Getenv("DATA_PATH"), "logs")
		case err == nil:
			logDir = filepath.Join(filepath.Dir(exePath), "logs")
		default:
			logDir = "logs"
		}
	}

	fileWriter, err := fileSink(logDir)
	if err != nil {
		return err
	}

	log.Logger = New(os.Stderr, fileWriter)
	return nil
}

// New builds a logger writing human-readable lines to console and JSON
// lines to file. Colour is used only when console is a terminal.
func New(console *os.File, file io.Writer) zerolog.Logger {
	isTerminal := isatty.IsTerminal(console.Fd()) || isatty.IsCygwinTerminal(console.Fd())
	consoleWriter := zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.RFC3339,
		NoColor:    !isTerminal,
	}

	multi := zerolog.MultiLevelWriter(io.Writer(consoleWriter), file)
	return zerolog.New(multi).
		With().
		Timestamp().
		Logger()
}

// Level picks the global level: LOG_LEVEL wins when valid, then the verbose flag.
func Level(verbose bool, override string) zerolog.Level {
	if override != "" {
		if lvl, err := zerolog.ParseLevel(override); err == nil {
			return lvl
		}
	}
	if verbose {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func fileSink(logDir string) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %q: %w", logDir, err)
	}

	// MkdirAll succeeds on existing read-only directories.
	testFile := filepath.Join(logDir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		return nil, fmt.Errorf("log directory %q is not writable: %w", logDir, err)
	}
	_ = os.Remove(testFile)

	return &lumberjack.Logger{
		Filename:   filepath.Join(logDir, FileName),
		MaxSize:    16, // megabytes
		MaxBackups: 32,
		MaxAge:     365, // days
		Compress:   true,
	}, nil
}
