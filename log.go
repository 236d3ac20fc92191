package pagewait

import (
	"log"
	"os"
)

var (
	// Logger is the default package logger.
	Logger = log.New(os.Stderr, "pagewait ", log.LstdFlags)
)

func nopf(string, ...interface{}) {}
