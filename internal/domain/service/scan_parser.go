package service

import (
	"regexp"
	"strconv"
	"strings"
)

// ParsedPort is one open port row extracted from scanner output.
type ParsedPort struct {
	Port        int
	Protocol    string
	State       string
	ServiceName string
	Version     string
}

// ParsedHost is one host block extracted from scanner output.
type ParsedHost struct {
	IPAddress string
	Hostname  string
	OS        string
	Ports     []ParsedPort
}

var (
	hostLinePattern = regexp.MustCompile(`Nmap scan report for ([\d.]+)(?: \(([\w.-]+)\))?`)
	portLinePattern = regexp.MustCompile(`^(\d+)/(\w+)\s+([a-zA-Z]+)\s+([\w.-]+)?\s*(.*)`)
	osLinePattern   = regexp.MustCompile(`OS details: (.*)`)
)

// ParseNmapOutput extracts hosts, their open ports and OS details from
// nmap's human-readable output. Lines that do not parse are skipped so a
// partially garbled report still yields the hosts it names. Hosts keep
// encounter order; a repeated IP replaces the earlier block in place.
func ParseNmapOutput(raw string) []ParsedHost {
	hosts := make([]ParsedHost, 0)
	indexByIP := make(map[string]int)
	current := -1

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)

		if m := hostLinePattern.FindStringSubmatch(line); m != nil {
			ip := m[1]
			hostname := m[2]
			if hostname == "" {
				hostname = ip
			}
			host := ParsedHost{
				IPAddress: ip,
				Hostname:  hostname,
				Ports:     []ParsedPort{},
			}
			if idx, seen := indexByIP[ip]; seen {
				hosts[idx] = host
				current = idx
			} else {
				hosts = append(hosts, host)
				current = len(hosts) - 1
				indexByIP[ip] = current
			}
			continue
		}

		if current < 0 {
			continue
		}

		if m := portLinePattern.FindStringSubmatch(line); m != nil {
			port, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			serviceName := m[4]
			if serviceName == "" {
				serviceName = "unknown"
			}
			version := strings.TrimSpace(m[5])
			if version == "" {
				version = "N/A"
			}
			hosts[current].Ports = append(hosts[current].Ports, ParsedPort{
				Port:        port,
				Protocol:    m[2],
				State:       m[3],
				ServiceName: serviceName,
				Version:     version,
			})
			continue
		}

		if m := osLinePattern.FindStringSubmatch(line); m != nil {
			hosts[current].OS = strings.TrimSpace(m[1])
		}
	}

	return hosts
}
