//go:build !windows

package main

func systemUILanguage() string {
	return ""
}
