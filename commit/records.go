// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package commit

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/poiesic/reviewpoint/core"
)

// MaxCaptionRunes caps the stored length of a full caption.
const MaxCaptionRunes = 1_000_000

// MaxTimingSec bounds video durations and segment timings (one week).
const MaxTimingSec = 7 * 24 * 3600.0

// Staged field names.
const (
	fieldChannelID       = "channel_id"
	fieldChannelTitle    = "channel_title"
	fieldUploadsPlaylist = "uploads_playlist"
	fieldChannelSubs     = "channel_subs"
	fieldCountry         = "country"
	fieldIngestedAt      = "ingested_at"

	fieldVideoID         = "video_id"
	fieldTitle           = "title"
	fieldDescription     = "description"
	fieldPublishedAt     = "published_at"
	fieldViewCount       = "view_count"
	fieldLikeCount       = "like_count"
	fieldTags            = "tags"
	fieldDefaultLang     = "default_lang"
	fieldDurationSec     = "duration_sec"
	fieldDurationISO8601 = "duration_iso8601"
	fieldPaidPlacement   = "paid_placement"

	fieldLang     = "lang"
	fieldIdx      = "idx"
	fieldStartSec = "start_sec"
	fieldDurSec   = "dur_sec"
	fieldText     = "text"
	fieldFullText = "full_text"

	fieldSource = "source"
	fieldIsPaid = "is_paid"
)

// fields wraps one staged row with typed accessors. Absent or blank optional
// fields read as zero values.
type fields map[string]string

func (f fields) value(name string) string {
	return strings.TrimSpace(f[name])
}

func (f fields) required(name string) (string, error) {
	v := f.value(name)
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return v, nil
}

func (f fields) integer(name string) (int64, error) {
	v := f.value(name)
	if v == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n, nil
	}
	// Some exporters write counts as floats.
	x, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidField, name, v)
	}
	return int64(x), nil
}

func (f fields) float(name string) (float64, error) {
	v := f.value(name)
	if v == "" {
		return 0, nil
	}
	x, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidField, name, v)
	}
	return x, nil
}

// timing reads a float that must lie in [0, MaxTimingSec].
func (f fields) timing(name string) (float64, error) {
	x, err := f.float(name)
	if err != nil {
		return 0, err
	}
	if x < 0 || x > MaxTimingSec {
		return 0, fmt.Errorf("%w: %s=%q out of range", ErrInvalidField, name, f.value(name))
	}
	return x, nil
}

func (f fields) flag(name string) (bool, error) {
	v := f.value(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrInvalidField, name, v)
	}
	return b, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (f fields) timestamp(name string) (time.Time, error) {
	v := f.value(name)
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s=%q", ErrInvalidField, name, v)
}

// tags accepts a JSON array or a comma-separated list.
func (f fields) tags(name string) ([]string, error) {
	v := f.value(name)
	if v == "" {
		return nil, nil
	}
	if strings.HasPrefix(v, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(v), &tags); err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidField, name, v)
		}
		return tags, nil
	}
	var tags []string
	for _, tag := range strings.Split(v, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

func parseChannel(f fields) (*core.Channel, error) {
	var (
		c   core.Channel
		err error
	)
	if c.ID, err = f.required(fieldChannelID); err != nil {
		return nil, err
	}
	if c.Subscribers, err = f.integer(fieldChannelSubs); err != nil {
		return nil, err
	}
	if c.IngestedAt, err = f.timestamp(fieldIngestedAt); err != nil {
		return nil, err
	}
	c.Title = f.value(fieldChannelTitle)
	c.UploadsPlaylist = f.value(fieldUploadsPlaylist)
	c.Country = f.value(fieldCountry)
	return &c, nil
}

func parseVideo(f fields) (*core.Video, error) {
	var (
		v   core.Video
		err error
	)
	if v.ID, err = f.required(fieldVideoID); err != nil {
		return nil, err
	}
	if v.PublishedAt, err = f.timestamp(fieldPublishedAt); err != nil {
		return nil, err
	}
	if v.Views, err = f.integer(fieldViewCount); err != nil {
		return nil, err
	}
	if v.Likes, err = f.integer(fieldLikeCount); err != nil {
		return nil, err
	}
	if v.Tags, err = f.tags(fieldTags); err != nil {
		return nil, err
	}
	if v.PaidPlacement, err = f.flag(fieldPaidPlacement); err != nil {
		return nil, err
	}
	if v.IngestedAt, err = f.timestamp(fieldIngestedAt); err != nil {
		return nil, err
	}
	if f.value(fieldDurationSec) != "" {
		if v.DurationSec, err = f.timing(fieldDurationSec); err != nil {
			return nil, err
		}
	} else if iso := f.value(fieldDurationISO8601); iso != "" {
		v.DurationSec, err = core.ParseISODuration(iso)
		if err != nil || v.DurationSec > MaxTimingSec {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidField, fieldDurationISO8601, iso)
		}
	}
	v.ChannelID = f.value(fieldChannelID)
	v.Title = f.value(fieldTitle)
	v.Description = f[fieldDescription]
	v.DefaultLang = f.value(fieldDefaultLang)
	return &v, nil
}

func parseSegment(f fields) (*core.CaptionSegment, error) {
	var (
		s   core.CaptionSegment
		err error
	)
	if s.VideoID, err = f.required(fieldVideoID); err != nil {
		return nil, err
	}
	if s.Lang, err = f.required(fieldLang); err != nil {
		return nil, err
	}
	idx, err := f.required(fieldIdx)
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(idx)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidField, fieldIdx, idx)
	}
	s.Idx = n
	if _, err = f.required(fieldStartSec); err != nil {
		return nil, err
	}
	if s.StartSec, err = f.timing(fieldStartSec); err != nil {
		return nil, err
	}
	if s.DurSec, err = f.timing(fieldDurSec); err != nil {
		return nil, err
	}
	s.Text = f.value(fieldText)
	return &s, nil
}

func parseCaption(f fields) (*core.CaptionFull, error) {
	var (
		c   core.CaptionFull
		err error
	)
	if c.VideoID, err = f.required(fieldVideoID); err != nil {
		return nil, err
	}
	if c.Lang, err = f.required(fieldLang); err != nil {
		return nil, err
	}
	if c.IngestedAt, err = f.timestamp(fieldIngestedAt); err != nil {
		return nil, err
	}
	c.Text = truncateRunes(f[fieldFullText], MaxCaptionRunes)
	return &c, nil
}

func parseSponsor(f fields) (*core.SponsorLabel, error) {
	var (
		s   core.SponsorLabel
		err error
	)
	if s.VideoID, err = f.required(fieldVideoID); err != nil {
		return nil, err
	}
	if s.Source, err = f.required(fieldSource); err != nil {
		return nil, err
	}
	if s.Paid, err = f.flag(fieldIsPaid); err != nil {
		return nil, err
	}
	if s.IngestedAt, err = f.timestamp(fieldIngestedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
