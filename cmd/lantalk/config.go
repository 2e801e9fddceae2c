package main

import "time"

type Config struct {
	Host            string        `env:"HOST,default=0.0.0.0"`
	Port            int           `env:"PORT,default=5000"`
	DataFile        string        `env:"DATA_FILE,default=chat_data.json"`
	FilesDir        string        `env:"FILES_DIR,default=uploaded_files"`
	BadgerFilepath  string        `env:"BADGER_FILEPATH,default=lantalk_meta"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	SendBufferSize  int           `env:"SEND_BUFFER_SIZE,default=64"`
	MaxMessageBytes int64         `env:"MAX_MESSAGE_BYTES,default=8388608"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	PingInterval    time.Duration `env:"PING_INTERVAL,default=30s"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL,default=1m"`
	TransferTTL     time.Duration `env:"TRANSFER_TTL,default=10m"`
}
