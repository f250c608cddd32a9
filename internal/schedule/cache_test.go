package schedule

import (
	"testing"
	"time"

	"github.com/CST438P3G6/slotbook/internal/model"
)

func TestCacheGetReturnsCopy(t *testing.T) {
	cache := NewCache(time.Minute)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	cache.put("biz-1", "k", []model.Slot{
		{Day: day, Start: day.Add(9 * time.Hour), End: day.Add(9*time.Hour + 30*time.Minute)},
		{Day: day, Start: day.Add(10 * time.Hour), End: day.Add(10*time.Hour + 30*time.Minute)},
	})

	first, ok := cache.get("biz-1", "k")
	if !ok {
		t.Fatal("expected cache hit")
	}
	// A caller scribbling on its result must not corrupt the entry.
	first[0], first[1] = first[1], first[0]
	first[0].Start = time.Time{}

	second, ok := cache.get("biz-1", "k")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !second[0].Start.Equal(day.Add(9 * time.Hour)) {
		t.Fatalf("cached entry mutated: first slot starts %s", second[0].Start)
	}
}

func TestCacheExpiry(t *testing.T) {
	cache := NewCache(time.Nanosecond)
	cache.put("biz-1", "k", []model.Slot{{}})

	time.Sleep(time.Millisecond)
	if _, ok := cache.get("biz-1", "k"); ok {
		t.Fatal("expected entry to expire")
	}
}
