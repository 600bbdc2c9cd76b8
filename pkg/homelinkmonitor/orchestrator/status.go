package orchestrator

import "github.com/vpbank/homelink_monitor/models"

// Classify derives the overall status of one snapshot. It is a pure
// function of the snapshot; nothing carries over between cycles.
//
// A missing gateway ping (no default route) does not count as a failure,
// and a snapshot without an HTTP result cannot be NoInternet.
func Classify(snap models.MonitoringSnapshot) models.ConnectionStatus {
	if snap.Wifi == nil || !snap.Wifi.IsConnected {
		return models.StatusDisconnected
	}
	if gw, ok := snap.GatewayPing(); ok && !gw.IsSuccess {
		return models.StatusDisconnected
	}
	if !resolversReachable(snap) && snap.HttpProbe != nil && !snap.HttpProbe.IsSuccess {
		return models.StatusNoInternet
	}

	signal := snap.Wifi.SignalQuality
	avg := models.AvgSuccessfulLatency(snap.PingResults)
	switch {
	case signal >= 70 && avg < 30:
		return models.StatusExcellent
	case signal >= 50 && avg < 60:
		return models.StatusGood
	case signal >= 30 && avg < 100:
		return models.StatusFair
	}
	return models.StatusPoor
}

// resolversReachable reports whether any A query was answered. Echo
// replies from DNS-labelled ping targets do not count.
func resolversReachable(snap models.MonitoringSnapshot) bool {
	for _, d := range snap.DnsResults {
		if d.IsSuccess {
			return true
		}
	}
	return false
}
