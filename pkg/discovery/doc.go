// Package discovery resolves printers on the local network via mDNS.
//
// Printers advertise a _bambulab._tcp service with their serial in the
// TXT records. The browser aggregates announcements across interfaces and
// can resolve a configured serial to a reachable address, so a printer
// entry may omit its host when DHCP moves the device around.
package discovery
