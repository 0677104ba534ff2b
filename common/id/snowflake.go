// Package id decodes Discord snowflake identifiers. Every Discord entity ID
// embeds its creation time, which makes IDs a reliable ordering key for
// messages even when two share a wall-clock timestamp.
package id

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Discord's snowflake epoch: 2015-01-01T00:00:00Z in milliseconds.
const discordEpoch = 1420070400000

func init() {
	snowflake.Epoch = discordEpoch
}

// Time extracts the creation time encoded in a Discord snowflake ID.
// Returns the zero time when the ID does not parse as a snowflake.
func Time(id string) time.Time {
	sf, err := snowflake.ParseString(id)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(sf.Time()).UTC()
}
