// Package proctitle names the running process so operators can find it in ps and top.
package proctitle

import (
	"errors"
	"strings"
)

// kernelNameMax is the usable length of the Linux task comm field.
const kernelNameMax = 15

var ErrEmptyTitle = errors.New("empty process title")

// short trims title and clips it to what the kernel keeps.
func short(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyTitle
	}
	if len(title) > kernelNameMax {
		title = title[:kernelNameMax]
	}
	return title, nil
}
