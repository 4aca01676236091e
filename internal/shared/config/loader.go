package config

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// reloadMu 串行化热更新写入；读方自行决定是否需要快照。
var reloadMu sync.Mutex

func load(path string, out any, onChange func()) {
	if !fileExist(path) {
		panic(fmt.Sprintf("config file not exist, path=%v", path))
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		panic(err)
	}
	if err := decode(v, out); err != nil {
		panic(err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("config changed: %s", e.Name)
		if err := decode(v, out); err != nil {
			// 热更新失败保留旧值
			log.Printf("config reload failed: %v", err)
			return
		}
		if onChange != nil {
			onChange()
		}
	})
	v.WatchConfig()
}

func decode(v *viper.Viper, out any) error {
	reloadMu.Lock()
	defer reloadMu.Unlock()
	return v.Unmarshal(out, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.WeaklyTypedInput = true
	})
}

func fileExist(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}
