//go:build linux

package netinfo

import (
	"errors"
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

func readAdapter(iface string) (adapterInfo, error) {
	var (
		link netlink.Link
		gw   string
		err  error
	)
	if iface != "" {
		link, err = netlink.LinkByName(iface)
		if err != nil {
			return adapterInfo{}, fmt.Errorf("link %s: %w", iface, err)
		}
		gw = gatewayFor(link)
	} else {
		link, gw, err = defaultRouteLink()
		if err != nil {
			return adapterInfo{}, err
		}
	}

	attrs := link.Attrs()
	info := adapterInfo{
		name:    attrs.Name,
		mac:     attrs.HardwareAddr.String(),
		gateway: gw,
		up:      attrs.Flags&net.FlagUp != 0 && attrs.OperState != netlink.OperDown,
	}
	if s := attrs.Statistics; s != nil {
		info.rxBytes = s.RxBytes
		info.txBytes = s.TxBytes
	}

	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return info, fmt.Errorf("addresses of %s: %w", attrs.Name, err)
	}
	for _, a := range addrs {
		if a.IPNet == nil || a.IP.IsLoopback() {
			continue
		}
		info.ip = a.IP.String()
		info.mask = net.IP(a.Mask).String()
		break
	}
	return info, nil
}

// defaultRouteLink finds the link and gateway of the first IPv4 default route.
func defaultRouteLink() (netlink.Link, string, error) {
	routes, err := netlink.RouteList(nil, netlink.FAMILY_V4)
	if err != nil {
		return nil, "", fmt.Errorf("route list: %w", err)
	}
	for _, r := range routes {
		if !isDefaultRoute(r) {
			continue
		}
		link, err := netlink.LinkByIndex(r.LinkIndex)
		if err != nil {
			return nil, "", fmt.Errorf("link %d: %w", r.LinkIndex, err)
		}
		return link, r.Gw.String(), nil
	}
	return nil, "", errors.New("no IPv4 default route")
}

func gatewayFor(link netlink.Link) string {
	routes, err := netlink.RouteList(link, netlink.FAMILY_V4)
	if err != nil {
		return ""
	}
	for _, r := range routes {
		if isDefaultRoute(r) {
			return r.Gw.String()
		}
	}
	return ""
}

// isDefaultRoute accepts both the nil and the 0.0.0.0/0 encodings of a
// default destination.
func isDefaultRoute(r netlink.Route) bool {
	if r.Gw == nil {
		return false
	}
	if r.Dst == nil {
		return true
	}
	ones, _ := r.Dst.Mask.Size()
	return ones == 0 && r.Dst.IP.IsUnspecified()
}
