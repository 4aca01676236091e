package config

import (
	"os"
	"path/filepath"
)

const DefaultRelPath = "configs/conf.yml"

// Load 读取配置到 out（需为指针），并监听文件变更热更新。
// cfgName 为空时从工作目录向上查找 configs/conf.yml。
// onChange 在热更新成功后回调，可为 nil。
func Load(cfgName string, out any, onChange func()) {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	path := cfgName
	switch {
	case path == "":
		path = searchUpward(wd, DefaultRelPath)
	case !filepath.IsAbs(path):
		path = searchUpward(wd, path)
	}
	load(path, out, onChange)
}

func searchUpward(start, rel string) string {
	for dir := start; ; {
		candidate := filepath.Join(dir, rel)
		if fileExist(candidate) {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			panic("config file not found: " + rel + ", searched from " + start)
		}
		dir = parent
	}
}
