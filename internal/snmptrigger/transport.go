// Package snmptrigger issues the two SNMPv1 SET operations this system
// needs: telling a switch to push its running config to a TFTP host,
// and telling it to persist the running config to NVRAM.
package snmptrigger

import (
	"context"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/switchback-net/switchback/internal/logger"
	"github.com/switchback-net/switchback/internal/werrors"
)

const (
	// OLD-CISCO-SYS-MIB writeNet. Setting <oid>.<host-ip> to a
	// filename string makes the device TFTP its running config to
	// that host under that name.
	writeNetOID = ".1.3.6.1.4.1.9.2.1.55"
	// OLD-CISCO-SYS-MIB writeMem. Setting to 1 copies the running
	// config to NVRAM.
	writeMemOID = ".1.3.6.1.4.1.9.2.1.54.0"
)

// Transport is the SNMP surface the orchestrator depends on. Both
// operations carry the context deadline; neither blocks past it.
type Transport interface {
	// TriggerRemoteWrite instructs the device at ip to push its
	// running configuration to the TFTP service at localIP using
	// filename token.
	TriggerRemoteWrite(ctx context.Context, ip, community, localIP, token string) error

	// CommitToNVRAM instructs the device to persist its running
	// configuration to non-volatile storage. Best effort.
	CommitToNVRAM(ctx context.Context, ip, community string) error
}

// GoSNMPTransport implements Transport over gosnmp with SNMPv1
// community auth.
type GoSNMPTransport struct {
	Port    uint16
	Timeout time.Duration
	Retries int

	log logger.Logger
}

// New returns a Transport with the given tuning.
func New(port uint16, timeout time.Duration, retries int, log logger.Logger) *GoSNMPTransport {
	return &GoSNMPTransport{
		Port:    port,
		Timeout: timeout,
		Retries: retries,
		log:     log,
	}
}

func (t *GoSNMPTransport) TriggerRemoteWrite(ctx context.Context, ip, community, localIP, token string) error {
	if localIP == "" {
		return werrors.New(werrors.ErrorTypeTransport, "no local IP to receive the transfer")
	}
	t.log.WithFields(map[string]interface{}{
		"ip":    ip,
		"oid":   writeNetOID + "." + localIP,
		"token": token,
	}).Info("snmp: triggering remote config write")

	pdu := gosnmp.SnmpPDU{
		Name:  writeNetOID + "." + localIP,
		Type:  gosnmp.OctetString,
		Value: token,
	}
	if err := t.set(ctx, ip, community, pdu); err != nil {
		return werrors.Wrap(werrors.ErrorTypeTransport, "remote write trigger failed", err)
	}
	return nil
}

func (t *GoSNMPTransport) CommitToNVRAM(ctx context.Context, ip, community string) error {
	t.log.WithFields(map[string]interface{}{
		"ip":  ip,
		"oid": writeMemOID,
	}).Info("snmp: writing config to NVRAM")

	pdu := gosnmp.SnmpPDU{
		Name:  writeMemOID,
		Type:  gosnmp.Integer,
		Value: 1,
	}
	if err := t.set(ctx, ip, community, pdu); err != nil {
		return werrors.Wrap(werrors.ErrorTypeNVRAM, "nvram write failed", err)
	}
	return nil
}

func (t *GoSNMPTransport) set(ctx context.Context, ip, community string, pdu gosnmp.SnmpPDU) error {
	session := &gosnmp.GoSNMP{
		Context:   ctx,
		Target:    ip,
		Port:      t.Port,
		Transport: "udp",
		Version:   gosnmp.Version1,
		Community: community,
		Timeout:   t.Timeout,
		Retries:   t.Retries,
	}
	if err := session.Connect(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", ip, err)
	}
	defer session.Conn.Close()

	packet, err := session.Set([]gosnmp.SnmpPDU{pdu})
	if err != nil {
		return fmt.Errorf("set %s on %s: %w", pdu.Name, ip, err)
	}
	if packet.Error != gosnmp.NoError {
		return fmt.Errorf("set %s on %s: device returned %v", pdu.Name, ip, packet.Error)
	}
	return nil
}
