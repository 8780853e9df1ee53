// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package glossary keeps per-series terminology stable across translation
// jobs. Each series holds one dictionary per language pair; entries map an
// original name to its chosen translation and track how often they are used.
//
// # Architecture
//
// The package follows the service/store split: [Service] owns business rules
// (capacity, seeding, usage accounting), [Store] is the persistence port
// with a PostgreSQL implementation, and Apply is a pure function so the
// translator can run it on an in-memory snapshot.
package glossary

import (
	"time"
)

// # Domain Types

// NounMark records how an entry's proper-noun flag was determined.
type NounMark int16

const (
	// NounAuto marks entries seeded by automatic name detection.
	NounAuto NounMark = 0
	// NounYes marks entries a human confirmed as proper nouns.
	NounYes NounMark = 1
	// NounNo marks entries a human rejected as proper nouns.
	NounNo NounMark = 2
)

// String returns the wire form used in API payloads.
func (mark NounMark) String() string {
	switch mark {
	case NounYes:
		return "yes"
	case NounNo:
		return "no"
	default:
		return "auto"
	}
}

// ParseNounMark maps the wire form back to a [NounMark], defaulting to auto.
func ParseNounMark(value string) NounMark {
	switch value {
	case "yes":
		return NounYes
	case "no":
		return NounNo
	default:
		return NounAuto
	}
}

// Dictionary is one glossary for a (series, source, target) triple.
type Dictionary struct {
	ID         string
	SeriesID   string
	SourceLang string
	TargetLang string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Entry maps an original term to its fixed translation.
type Entry struct {
	ID           string
	DictionaryID string
	Original     string
	Translation  string
	ProperNoun   NounMark
	UsageCount   int
	LastUsedAt   time.Time
	CreatedAt    time.Time
}

// Stats summarizes a dictionary for the read-only ingress endpoint.
type Stats struct {
	DictionaryID string
	EntryCount   int
	ProperNouns  int
	MostUsed     []Entry
}

const (
	// DefaultCapacity is the entry ceiling per dictionary before cleanup.
	DefaultCapacity = 1000
	// MinKeepUsage protects entries at or above this usage from cleanup.
	MinKeepUsage = 2
)
