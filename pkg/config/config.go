package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parser holds the tunables of the box parser. 优先级：环境变量>配置文件>默认值
type Parser struct {
	MaxDepth         int    `default:"64" desc:"容器最大嵌套深度"`
	LazyRawThreshold uint64 `default:"1048576" desc:"未知box超过该字节数时不读入内存，0表示总是读入"`
	StrictContext    bool   `desc:"上下文歧义时直接报错而不是记录诊断"`
	LogLevel         string `default:"info" desc:"日志级别"`
}

// EnvPrefix is prepended to upper-cased field names when reading the environment.
const EnvPrefix = "BMFF"

func Default() (conf Parser) {
	if err := applyTags(reflect.ValueOf(&conf).Elem(), "default"); err != nil {
		panic(err)
	}
	return
}

// Load starts from the defaults, overlays the YAML read from r (which may be
// empty) and finally any BMFF_<FIELD> environment variables.
func Load(r io.Reader) (conf Parser, err error) {
	conf = Default()
	if r != nil {
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err = dec.Decode(&conf); err != nil && !errors.Is(err, io.EOF) {
			return conf, fmt.Errorf("config: %w", err)
		}
		err = nil
	}
	err = applyEnv(reflect.ValueOf(&conf).Elem(), EnvPrefix)
	return
}

func LoadFile(path string) (Parser, error) {
	f, err := os.Open(path)
	if err != nil {
		return Default(), err
	}
	defer f.Close()
	return Load(f)
}

func applyTags(v reflect.Value, key string) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		ft := t.Field(i)
		if tag := ft.Tag.Get(key); tag != "" && ft.IsExported() {
			if err := assign(v.Field(i), tag); err != nil {
				return fmt.Errorf("config: %s %s %q: %w", ft.Name, key, tag, err)
			}
		}
	}
	return nil
}

func applyEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		ft := t.Field(i)
		if !ft.IsExported() {
			continue
		}
		name := prefix + "_" + strings.ToUpper(ft.Name)
		if envValue := os.Getenv(name); envValue != "" {
			if err := assign(v.Field(i), envValue); err != nil {
				return fmt.Errorf("config: env %s: %w", name, err)
			}
		}
	}
	return nil
}

// assign 借助yaml把字符串解析成字段对应的类型
func assign(fv reflect.Value, value string) error {
	return yaml.Unmarshal([]byte(value), fv.Addr().Interface())
}
