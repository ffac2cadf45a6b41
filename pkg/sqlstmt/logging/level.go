package logging

import (
	"bytes"
	"strings"
)

// Level represents different logging levels.
type Level int

const (
	DEBUG Level = iota + 1
	INFO
	NOTICE
	WARN
	ERROR
	FATAL
)

const (
	redColor    = 31
	yellowColor = 33
	blueColor   = 34
	normalColor = 37
	greyColor   = 90
)

// String constants for logging levels.
const (
	levelDEBUG  = "DEBUG"
	levelINFO   = "INFO"
	levelNOTICE = "NOTICE"
	levelWARN   = "WARN"
	levelERROR  = "ERROR"
	levelFATAL  = "FATAL"
)

//nolint:gochecknoglobals // lookup table
var levelNames = map[Level]string{
	DEBUG:  levelDEBUG,
	INFO:   levelINFO,
	NOTICE: levelNOTICE,
	WARN:   levelWARN,
	ERROR:  levelERROR,
	FATAL:  levelFATAL,
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}

	return ""
}

// MarshalJSON writes the level by name.
func (l Level) MarshalJSON() ([]byte, error) {
	buf := bytes.NewBufferString(`"`)
	buf.WriteString(l.String())
	buf.WriteString(`"`)

	return buf.Bytes(), nil
}

func (l Level) color() uint {
	switch l {
	case ERROR, FATAL:
		return redColor
	case WARN:
		return yellowColor
	case INFO:
		return blueColor
	case DEBUG:
		return greyColor
	default:
		return normalColor
	}
}

// GetLevelFromString parses a level name, falling back to INFO.
func GetLevelFromString(level string) Level {
	for l, name := range levelNames {
		if strings.EqualFold(strings.TrimSpace(level), name) {
			return l
		}
	}

	return INFO
}
