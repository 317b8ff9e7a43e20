// Package msfrpc provides a client for the Metasploit Framework MSGRPC
// service (msfrpcd, or "load msgrpc" in msfconsole).
//
// Requests are MessagePack arrays POSTed over HTTP or HTTPS to /api/;
// responses are MessagePack values.
//
// # Architecture
//
// The library is organized into layers:
//
//	┌─────────────────────────────────────────────────────────┐
//	│  client/       Session, auth.login, Call, typed methods │
//	├─────────────────────────────────────────────────────────┤
//	│  codec/        MessagePack Value, decode + normalize    │
//	├─────────────────────────────────────────────────────────┤
//	│  transport/    HTTP/HTTPS POST                          │
//	└─────────────────────────────────────────────────────────┘
//
// # Quick Start
//
//	c, err := client.New(client.Config{Host: "192.168.9.225"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	if err := c.Login(ctx, "msf", "password"); err != nil {
//	    log.Fatal(err)
//	}
//
//	mods, err := c.ModuleExploits(ctx)
package msfrpc
