package panel

import "github.com/pkg/browser"

func openURL(link string) error {
	return browser.OpenURL(link)
}
