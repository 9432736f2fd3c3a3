package config

import (
	"bytes"
	"fmt"

	"gopkg.in/ini.v1"
)

// INI — koanf.Parser для INI-файлов старого клиента:
//
//	[remote]
//	host = https://manager.example.com
//	subscription_addr = tcp://manager.example.com:8999
//
// Секции становятся вложенными ключами ("remote.host"). Ключи секции
// DEFAULT наследуются всеми секциями, как в ConfigParser. Имена ключей
// не чувствительны к регистру.
type INI struct{}

// INIParser возвращает парсер INI для koanf.
func INIParser() *INI {
	return &INI{}
}

// Unmarshal разбирает INI в map секций.
func (p *INI) Unmarshal(b []byte) (map[string]any, error) {
	f, err := ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, b)
	if err != nil {
		return nil, fmt.Errorf("parse ini: %w", err)
	}

	defaults := f.Section(ini.DefaultSection).KeysHash()

	out := make(map[string]any)
	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}

		values := make(map[string]any, len(defaults))
		for k, v := range defaults {
			values[k] = v
		}
		for _, key := range sec.Keys() {
			values[key.Name()] = key.String()
		}
		out[sec.Name()] = values
	}

	return out, nil
}

// Marshal собирает INI из map секций. Значения верхнего уровня
// попадают в секцию DEFAULT.
func (p *INI) Marshal(o map[string]any) ([]byte, error) {
	f := ini.Empty()

	for name, v := range o {
		values, ok := v.(map[string]any)
		if !ok {
			if _, err := f.Section(ini.DefaultSection).NewKey(name, fmt.Sprint(v)); err != nil {
				return nil, err
			}
			continue
		}

		sec, err := f.NewSection(name)
		if err != nil {
			return nil, err
		}
		for k, val := range values {
			if _, err := sec.NewKey(k, fmt.Sprint(val)); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
