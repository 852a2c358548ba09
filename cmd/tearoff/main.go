// tearoff CLI - filtered record builder and verifier
//
// This CLI demonstrates the tearoff library: building a record committed
// via nonce-salted Merkle trees, deriving a filtered (tear-off) view
// that reveals only selected component groups, and verifying that view
// against the original record id.
//
// Example usage:
//
//	# Build a demo record, filter it, verify, attest
//	tearoff demo --reveal "outputs,commands" --out filtered.tftx
//
//	# Verify a serialized filtered record
//	tearoff verify filtered.tftx
//
//	# Verify and additionally pin the expected record id
//	tearoff verify filtered.tftx --id <hex>
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/suffix-labs/tearoff/pkg/api"
	"github.com/suffix-labs/tearoff/pkg/crypto"
	"github.com/suffix-labs/tearoff/pkg/reveal"
	"github.com/suffix-labs/tearoff/pkg/tx"
	"github.com/suffix-labs/tearoff/pkg/wire"
)

const demoContract = "tearoff.demo.Asset"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "demo":
		cmdDemo()
	case "verify":
		cmdVerify()
	case "inspect":
		cmdInspect()
	case "version":
		cmdVersion()
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tearoff - filtered record builder and verifier

Usage:
  tearoff <command> [options]

Commands:
  demo                          Build a demo record, filter and verify it
  verify <file> [--id <hex>]    Verify a serialized filtered record
  inspect <file> [--class <n>]  Verify and print a filtered record's contents
  version                       Show version information
  help                          Show this help message

Demo options:
  --reveal <spec>   Reveal specification (default "outputs,commands")
                    e.g. "inputs", "commands=Transfer", "all"
  --out <file>      Write the serialized filtered record to <file>

Inspect options:
  --class <name>    Attachment class to resolve outputs and commands
                    against; repeatable

Examples:
  tearoff demo --reveal "commands=Transfer" --out filtered.tftx
  tearoff verify filtered.tftx
  tearoff inspect filtered.tftx --class tearoff.demo.Asset --class Transfer`)
}

func cmdVersion() {
	fmt.Println("tearoff v0.1.0")
	fmt.Println("Selective disclosure for Merkle-committed records")
}

func cmdDemo() {
	revealSpec := "outputs,commands"
	outFile := ""
	args := os.Args[2:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--reveal":
			i++
			if i >= len(args) {
				fatal("--reveal requires a value")
			}
			revealSpec = args[i]
		case "--out":
			i++
			if i >= len(args) {
				fatal("--out requires a value")
			}
			outFile = args[i]
		default:
			fatal("unknown demo option: " + args[i])
		}
	}

	spec, err := reveal.Parse(revealSpec)
	if err != nil {
		fatal(err.Error())
	}

	wtx, alice := buildDemoRecord()
	fmt.Printf("Full record id:    %s\n", wtx.ID())

	ftx, err := api.BuildFiltered(wtx, spec.Predicate())
	if err != nil {
		fatal(err.Error())
	}

	if err := api.Verify(ftx); err != nil {
		fatal("filtered record failed verification: " + err.Error())
	}
	fmt.Printf("Filtered view of:  %s\n", ftx.ID())
	for _, fg := range ftx.FilteredComponentGroups() {
		fmt.Printf("  %-12s %d component(s) revealed\n", fg.Index, len(fg.Components))
	}
	if len(ftx.FilteredComponentGroups()) == 0 {
		fmt.Println("  no components revealed (id-only view)")
	}

	// Blind-style attestation over the filtered id.
	signature := alice.SignID(ftx.ID())
	if !crypto.VerifyIDSignature(alice.PublicKey(), ftx.ID(), signature) {
		fatal("attestation signature failed to verify")
	}
	fmt.Printf("Attested by:       %s\n", alice.PublicKey().Fingerprint())

	if outFile != "" {
		data, err := api.SerializeFiltered(ftx)
		if err != nil {
			fatal(err.Error())
		}
		if err := os.WriteFile(outFile, data, 0o644); err != nil {
			fatal(err.Error())
		}
		fmt.Printf("Wrote %d bytes to %s\n", len(data), outFile)
	}
}

func cmdVerify() {
	if len(os.Args) < 3 {
		fatal("usage: tearoff verify <file> [--id <hex>]")
	}
	file := os.Args[2]

	wantID := ""
	args := os.Args[3:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--id":
			i++
			if i >= len(args) {
				fatal("--id requires a value")
			}
			wantID = args[i]
		default:
			fatal("unknown verify option: " + args[i])
		}
	}

	data, err := os.ReadFile(file)
	if err != nil {
		fatal(err.Error())
	}

	ftx, err := api.ParseFiltered(data, wire.DefaultContext())
	if err != nil {
		fatal(err.Error())
	}
	if err := api.Verify(ftx); err != nil {
		fatal(err.Error())
	}

	if wantID != "" {
		id, err := crypto.ParseSecureHash(wantID)
		if err != nil {
			fatal(err.Error())
		}
		if id != ftx.ID() {
			fatal(fmt.Sprintf("record id mismatch: view is bound to %s", ftx.ID()))
		}
	}

	fmt.Printf("OK: faithful partial view of record %s\n", ftx.ID())
	for _, fg := range ftx.FilteredComponentGroups() {
		fmt.Printf("  %-12s %d component(s) revealed\n", fg.Index, len(fg.Components))
	}
}

func cmdInspect() {
	if len(os.Args) < 3 {
		fatal("usage: tearoff inspect <file> [--class <name>]")
	}
	file := os.Args[2]

	var classes []string
	args := os.Args[3:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--class":
			i++
			if i >= len(args) {
				fatal("--class requires a value")
			}
			classes = append(classes, args[i])
		default:
			fatal("unknown inspect option: " + args[i])
		}
	}

	data, err := os.ReadFile(file)
	if err != nil {
		fatal(err.Error())
	}

	ftx, err := api.ParseFiltered(data, wire.NewContext(classes...))
	if err != nil {
		fatal(err.Error())
	}
	if err := api.Verify(ftx); err != nil {
		fatal(err.Error())
	}

	fmt.Printf("Record id:  %s\n", ftx.ID())
	fmt.Printf("Group hash vector: %d entries\n", len(ftx.GroupHashes()))

	if inputs, err := ftx.Inputs(); err == nil {
		for _, ref := range inputs {
			fmt.Printf("  input      %s:%d\n", ref.TxID.Short(), ref.Index)
		}
	}
	if outputs, err := ftx.Outputs(); err == nil {
		for _, state := range outputs {
			fmt.Printf("  output     %s (%d bytes)\n", state.ContractName, len(state.Data))
		}
	} else {
		fmt.Println("  outputs hidden or unresolvable (supply --class)")
	}
	if commands, err := ftx.Commands(); err == nil {
		for _, command := range commands {
			fmt.Printf("  command    %s, %d signer(s)\n", command.Data.Name, len(command.Signers))
			for _, signer := range command.Signers {
				fmt.Printf("             signed by %s\n", signer.Fingerprint())
			}
		}
	} else {
		fmt.Println("  commands hidden or unresolvable (supply --class)")
	}
	if attachments, err := ftx.Attachments(); err == nil {
		for _, id := range attachments {
			fmt.Printf("  attachment %s\n", id)
		}
	}
	if notary, err := ftx.Notary(); err == nil && notary != nil {
		fmt.Printf("  notary     %s\n", notary)
	}
	if window, err := ftx.TimeWindow(); err == nil && window != nil {
		fmt.Printf("  window     from=%s until=%s\n", bound(window.From), bound(window.Until))
	}
	if references, err := ftx.References(); err == nil {
		for _, ref := range references {
			fmt.Printf("  reference  %s:%d\n", ref.TxID.Short(), ref.Index)
		}
	}
}

func bound(unix *int64) string {
	if unix == nil {
		return "open"
	}
	return time.Unix(*unix, 0).UTC().Format(time.RFC3339)
}

// buildDemoRecord assembles a small record with every known group
// populated, returning it together with one signer's private key.
func buildDemoRecord() (*tx.WireTransaction, *crypto.PrivateKey) {
	alice := mustKey()
	bob := mustKey()
	notary := mustKey()

	prevTx := crypto.ComponentHash(crypto.SecureHash{}, []byte("demo-previous-record"))
	from := time.Now().Add(-time.Hour).Unix()
	until := time.Now().Add(time.Hour).Unix()

	builder := tx.NewBuilder().
		AddInput(wire.StateRef{TxID: prevTx, Index: 0}).
		AddInput(wire.StateRef{TxID: prevTx, Index: 1}).
		AddOutput(wire.OutputState{ContractName: demoContract, Data: []byte("asset:10:bob")}).
		AddOutput(wire.OutputState{ContractName: demoContract, Data: []byte("asset:5:alice")}).
		AddCommand(wire.CommandData{Name: "Transfer"}, alice.PublicKey(), bob.PublicKey()).
		AddCommand(wire.CommandData{Name: "Issue"}, alice.PublicKey()).
		AddAttachment(wire.AttachmentID(crypto.ComponentHash(crypto.SecureHash{}, []byte("demo-attachment")))).
		SetNotary(wire.Party{Name: "DemoNotary", Key: notary.PublicKey()}).
		SetTimeWindow(wire.TimeWindow{From: &from, Until: &until}).
		AddReference(wire.StateRef{TxID: prevTx, Index: 2})

	wtx, err := builder.Build()
	if err != nil {
		fatal(err.Error())
	}
	return wtx, alice
}

func mustKey() *crypto.PrivateKey {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fatal(err.Error())
	}
	return key
}

func fatal(message string) {
	fmt.Fprintln(os.Stderr, "Error: "+message)
	os.Exit(1)
}
