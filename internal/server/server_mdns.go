package server

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/mdns"

	"github.com/izzyreal/resethook/internal/hook"
	"github.com/izzyreal/resethook/internal/version"
)

const mdnsService = "_resethook._tcp"

// startMDNSAdvertiser announces the hook endpoint when RESETHOOK_MDNS_ENABLE=true.
// The returned func stops it.
func startMDNSAdvertiser(serverAddr string, plugin *hook.Plugin) func() {
	if strings.TrimSpace(envOrDefault("RESETHOOK_MDNS_ENABLE", "false")) != "true" {
		return func() {}
	}

	port, err := advertisePort(serverAddr)
	if err != nil {
		slog.Error("mdns advertise skipped", "addr", serverAddr, "error", err)
		return func() {}
	}

	host, _ := os.Hostname()
	instance := strings.TrimSpace(envOrDefault("RESETHOOK_MDNS_INSTANCE", "resethook-"+strings.TrimSpace(host)))
	if instance == "" || instance == "resethook-" {
		instance = "resethook"
	}

	// mdns resolves the host's own addresses when ips is nil.
	service, err := mdns.NewMDNSService(instance, mdnsService, "", "", port, nil, advertiseMeta(plugin))
	if err != nil {
		slog.Error("mdns advertise service setup failed", "error", err)
		return func() {}
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		slog.Error("mdns advertise start failed", "error", err)
		return func() {}
	}
	slog.Info("mdns advertising enabled", "service", mdnsService, "instance", instance, "port", port)

	return func() {
		_ = server.Shutdown()
	}
}

// advertiseMeta is the TXT record a build host reads to pick the right hook URL.
func advertiseMeta(plugin *hook.Plugin) []string {
	cfg := plugin.Config()
	return []string{
		"name=resethook",
		"api_version=1",
		"version=" + version.Current(),
		"cleanup_event=" + string(plugin.CleanupEvent()),
		"hook_path=/api/v1/hooks/" + string(plugin.CleanupEvent()),
		"targets=" + strconv.Itoa(len(cfg.Targets)),
		"patterns=" + strconv.Itoa(len(cfg.Patterns)),
	}
}

func advertisePort(addr string) (int, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return 8113, nil
	}
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("parse listen addr: %w", err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid listen port %q", p)
	}
	return port, nil
}
