package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainOperation = "dajeum/operation/v1"
	DomainReceipt   = "dajeum/receipt/v1"
	DomainEvents    = "dajeum/events/v1"
	DomainChain     = "dajeum/chain/v1"
	DomainGenesis   = "dajeum/genesis/v1"
)

// ZeroHash is the prev_hash of the first log entry.
var ZeroHash = strings.Repeat("0", 64)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// OperationID computes the content-addressed id of an operation.
// The id is stable across restarts and replays given the same inputs.
func OperationID(requestID string, action Action, caller string, args Object, seq int64) (string, error) {
	obj := Object{
		"request_id": String(requestID),
		"action":     String(action),
		"caller":     String(caller),
		"args":       args,
		"seq":        Int(seq),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("OperationID: %w", err)
	}
	return hashWithDomain(DomainOperation, canonical), nil
}

// ReceiptHash digests a receipt. Replay compares these digests to prove the
// rebuilt state resolved every operation identically.
func ReceiptHash(r Receipt) (string, error) {
	obj := Object{
		"operation_id": String(r.OperationID),
		"seq":          Int(r.Seq),
		"outcome":      String(r.Outcome),
		"result":       nonNil(r.Result),
		"error":        String(r.Error),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ReceiptHash: %w", err)
	}
	return hashWithDomain(DomainReceipt, canonical), nil
}

// EventsHash digests the ordered events of one operation.
func EventsHash(events []Event) (string, error) {
	arr := make(Array, len(events))
	for i, ev := range events {
		arr[i] = Object{
			"name":   String(ev.Name),
			"fields": nonNil(ev.Fields),
		}
	}
	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("EventsHash: %w", err)
	}
	return hashWithDomain(DomainEvents, canonical), nil
}

// ChainHash links a log entry to its predecessor:
// SHA256(domain, prev || operation id || receipt hash || events hash).
func ChainHash(prev, operationID, receiptHash, eventsHash string) string {
	data := strings.Join([]string{prev, operationID, receiptHash, eventsHash}, "\n")
	return hashWithDomain(DomainChain, []byte(data))
}

// GenesisHash digests the canonical genesis document.
func GenesisHash(genesis Object) (string, error) {
	canonical, err := MarshalCanonical(genesis)
	if err != nil {
		return "", fmt.Errorf("GenesisHash: %w", err)
	}
	return hashWithDomain(DomainGenesis, canonical), nil
}

// EntryHash computes the chain hash of a fully populated log entry.
func EntryHash(e LogEntry) (string, error) {
	rh, err := ReceiptHash(e.Receipt)
	if err != nil {
		return "", err
	}
	eh, err := EventsHash(e.Events)
	if err != nil {
		return "", err
	}
	return ChainHash(e.PrevHash, e.Operation.ID, rh, eh), nil
}

// MustOperationID is like OperationID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustOperationID(requestID string, action Action, caller string, args Object, seq int64) string {
	id, err := OperationID(requestID, action, caller, args, seq)
	if err != nil {
		panic(err)
	}
	return id
}

func nonNil(o Object) Object {
	if o == nil {
		return Object{}
	}
	return o
}
