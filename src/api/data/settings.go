package data

import (
	"strconv"
	"sync"

	"github.com/Gunhee-b/community-web-sub001/src/api/types"
	"gorm.io/gorm"
)

var (
	settingsCache map[string]string
	settingsMu    sync.RWMutex
)

// LoadSettings reads the settings table into the in-memory cache. Runs once
// at boot; operational knobs change with a restart.
func LoadSettings(db *gorm.DB) error {
	var settings []types.Setting
	if err := db.Find(&settings).Error; err != nil {
		return err
	}

	settingsMu.Lock()
	defer settingsMu.Unlock()

	settingsCache = make(map[string]string, len(settings))
	for _, s := range settings {
		settingsCache[s.Name] = s.Value
	}
	return nil
}

func GetSetting(name string) string {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settingsCache[name]
}

// GetSettingInt returns a numeric setting, falling back to def when the row
// is absent or not a number.
func GetSettingInt(name string, def int) int {
	n, err := strconv.Atoi(GetSetting(name))
	if err != nil {
		return def
	}
	return n
}
