// Package config loads and validates the bridge configuration file.
//
// The file is YAML with one entry per printer plus the shared Spoolman
// endpoint:
//
//	log_level: info
//	event_log: /var/log/spoolbridge/bridge.blog
//	spoolman:
//	  url: http://localhost:7912
//	  timeout_seconds: 10
//	printers:
//	  - serial: 01S00C123456789
//	    host: 192.168.1.50
//	    access_code: "12345678"
//	    slots:
//	      "0": 11
//	      "1": 12
//
// Printer entries default to the Bambu LAN-mode conventions: port 8883,
// username bblp, TLS on with certificate verification disabled (the
// printers present self-signed certificates). An entry may omit host and
// set discover: true to resolve the printer via mDNS instead.
package config
