// File: internal/config/humanoid_config.go
package config

import (
	"github.com/spf13/viper"

	"github.com/xkilldash9x/tapsolver/internal/humanoid"
)

// setHumanoidDefaults registers the click model defaults under
// browser.humanoid.
func setHumanoidDefaults(v *viper.Viper) {
	def := humanoid.DefaultConfig()
	v.SetDefault("browser.humanoid.click_hold_mean_ms", def.ClickHoldMeanMs)
	v.SetDefault("browser.humanoid.click_hold_stddev_ms", def.ClickHoldStdDevMs)
	v.SetDefault("browser.humanoid.click_hold_min_ms", def.ClickHoldMinMs)
	v.SetDefault("browser.humanoid.click_hold_max_ms", def.ClickHoldMaxMs)
	v.SetDefault("browser.humanoid.pause_jitter", 0.0)
}
