//go:build !linux

package netinfo

import "errors"

func readAdapter(string) (adapterInfo, error) {
	return adapterInfo{}, errors.New("adapter inspection requires netlink (linux only)")
}
