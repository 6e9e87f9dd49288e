//go:build windows

package main

import "golang.org/x/sys/windows"

// systemUILanguage 用户界面首选语言，例如 zh-CN
func systemUILanguage() string {
	langs, err := windows.GetUserPreferredUILanguages(windows.MUI_LANGUAGE_NAME)
	if err != nil || len(langs) == 0 {
		return ""
	}
	return langs[0]
}
