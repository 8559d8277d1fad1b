package main

import (
	"fmt"
	"time"
)

type Config struct {
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath     string        `env:"BLUGE_FILEPATH,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	HealthInterval    time.Duration `env:"HEALTH_INTERVAL,default=30s"`
	CensoredWordsFile string        `env:"CENSORED_WORDS_FILE"`
	CharReplacement   string        `env:"CHARACTER_REPLACEMENT,default=*"`
	StaffRoster       []string      `env:"STAFF_ROSTER"`
}

func characterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
