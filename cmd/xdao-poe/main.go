package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/poe/balances"
	"xdao.co/poe/chain"
	"xdao.co/poe/cidutil"
	"xdao.co/poe/grpcnode"
	"xdao.co/poe/keys"
	"xdao.co/poe/poe"
	"xdao.co/poe/runtime"
	"xdao.co/poe/storage/casregistry"

	_ "xdao.co/poe/storage/localfs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "archive":
		return cmdArchive(args[1:], out, errOut)
	case "balance":
		return cmdBalance(args[1:], out, errOut)
	case "claim":
		return cmdClaim(args[1:], out, errOut)
	case "fingerprint":
		return cmdFingerprint(args[1:], out, errOut)
	case "head":
		return cmdHead(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "nonce":
		return cmdNonce(args[1:], out, errOut)
	case "transfer":
		return cmdTransfer(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "xdao-poe: proof-of-existence chain client")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  xdao-poe fingerprint <file>")
	fmt.Fprintln(w, "  xdao-poe key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  xdao-poe key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  xdao-poe key list")
	fmt.Fprintln(w, "  xdao-poe key export --name <name> [--role <role>]")
	fmt.Fprintln(w, "  xdao-poe claim create (--file <file> | --claim <CID>) (--seed-hex <64hex> | --signer <name> [--signer-role <role>] | --key-file <path>) [--node <addr>]")
	fmt.Fprintln(w, "  xdao-poe claim revoke (--file <file> | --claim <CID>) (--seed-hex ... | --signer ... | --key-file ...) [--node <addr>]")
	fmt.Fprintln(w, "  xdao-poe claim owner --claim <CID> [--node <addr>]")
	fmt.Fprintln(w, "  xdao-poe transfer --to <account> --amount <n> (--seed-hex ... | --signer ... | --key-file ...) [--node <addr>]")
	fmt.Fprintln(w, "  xdao-poe balance --account <account> [--node <addr>]")
	fmt.Fprintln(w, "  xdao-poe nonce --account <account> [--node <addr>]")
	fmt.Fprintln(w, "  xdao-poe head [--node <addr>]")
	fmt.Fprintln(w, "  xdao-poe archive cat --dir <dir> <CID>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - --seed-hex must be 32 bytes (64 hex chars) ed25519 seed")
	fmt.Fprintln(w, "  - keys are stored under ~/.xdao/poe/keys (0600 key files)")
	fmt.Fprintln(w, "  - fingerprint prints the claim CID for a file; claim create accepts either")
	fmt.Fprintln(w, "    the file itself or a precomputed CID")
	fmt.Fprintln(w, "  - claim create/revoke and transfer print the extrinsic receipt; the")
	fmt.Fprintln(w, "    extrinsic takes effect when the node seals its next block")
	fmt.Fprintln(w, "  - archive cat reads a sealed block from a local archive directory")
}

const defaultNode = "127.0.0.1:9470"

// signerFlags is the signer selection shared by all signing commands.
type signerFlags struct {
	seedHex    string
	signerName string
	signerRole string
	keyFile    string
}

func (sf *signerFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&sf.seedHex, "seed-hex", "", "ed25519 seed as 64 hex chars")
	fs.StringVar(&sf.signerName, "signer", "", "Use a stored key by name (from 'xdao-poe key init')")
	fs.StringVar(&sf.signerRole, "signer-role", "", "When using --signer, optionally use a derived role key")
	fs.StringVar(&sf.keyFile, "key-file", "", "Path to a seed file (hex) created by 'xdao-poe key init/derive'")
}

func (sf *signerFlags) check(errOut io.Writer) bool {
	if sf.seedHex == "" && sf.signerName == "" && sf.keyFile == "" {
		fmt.Fprintln(errOut, "missing signer: use --seed-hex, --signer, or --key-file")
		return false
	}
	if sf.seedHex != "" && (sf.signerName != "" || sf.keyFile != "") {
		fmt.Fprintln(errOut, "conflicting signer flags: --seed-hex cannot be combined with --signer or --key-file")
		return false
	}
	if sf.signerName != "" && sf.keyFile != "" {
		fmt.Fprintln(errOut, "conflicting signer flags: --signer cannot be combined with --key-file")
		return false
	}
	return true
}

func (sf *signerFlags) load(errOut io.Writer) ([]byte, chain.AccountID, bool) {
	ks, err := keys.Open("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return nil, "", false
	}
	seed, err := ks.LoadSeed(sf.seedHex, sf.signerName, sf.signerRole, sf.keyFile)
	if err != nil {
		fmt.Fprintf(errOut, "invalid signer: %v\n", err)
		return nil, "", false
	}
	return seed, keys.AccountFromSeed(seed), true
}

func dialNode(addr string, errOut io.Writer) (*grpcnode.Client, bool) {
	client, err := grpcnode.Dial(addr, grpcnode.DialOptions{Timeout: 5 * time.Second})
	if err != nil {
		fmt.Fprintf(errOut, "dial %s: %v\n", addr, err)
		return nil, false
	}
	client.Timeout = 10 * time.Second
	return client, true
}

// submitSigned fetches the caller's nonce, signs the call, and submits it.
func submitSigned(client *grpcnode.Client, seed []byte, caller chain.AccountID, call chain.Call, out, errOut io.Writer) int {
	nonce, err := client.Nonce(caller)
	if err != nil {
		fmt.Fprintf(errOut, "fetch nonce: %v\n", err)
		return 1
	}
	scope, err := runtime.SigningScope(caller, nonce, call)
	if err != nil {
		fmt.Fprintf(errOut, "signing scope: %v\n", err)
		return 1
	}
	sig, err := keys.SignEd25519(scope, seed)
	if err != nil {
		fmt.Fprintf(errOut, "sign: %v\n", err)
		return 1
	}
	receipt, err := client.Submit(chain.SignedExtrinsic{
		Extrinsic: chain.Extrinsic{Caller: caller, Call: call},
		Nonce:     nonce,
		Signature: sig,
	})
	if err != nil {
		fmt.Fprintf(errOut, "submit: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, receipt)
	return 0
}

// resolveClaim turns --file/--claim flags into a claim CID.
func resolveClaim(file, claim string, errOut io.Writer) (chain.Content, bool) {
	switch {
	case file == "" && claim == "":
		fmt.Fprintln(errOut, "missing claim: use --file or --claim")
		return "", false
	case file != "" && claim != "":
		fmt.Fprintln(errOut, "conflicting claim flags: --file cannot be combined with --claim")
		return "", false
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(file), err)
			return "", false
		}
		return cidutil.Fingerprint(b), true
	default:
		if _, err := cidutil.Decode(claim); err != nil {
			fmt.Fprintf(errOut, "invalid --claim: %v\n", err)
			return "", false
		}
		return chain.Content(claim), true
	}
}

func cmdFingerprint(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("fingerprint", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: xdao-poe fingerprint <file>")
		return 2
	}
	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(fs.Arg(0)), err)
		return 1
	}
	_, _ = fmt.Fprintln(out, cidutil.Fingerprint(b))
	return 0
}

func cmdClaim(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: xdao-poe claim <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: create, revoke, owner")
		return 2
	}
	switch args[0] {
	case "create":
		return cmdClaimSubmit(args[1:], out, errOut, "claim create", func(claim chain.Content) chain.Call {
			return poe.CreateClaimCall{Claim: claim}
		})
	case "revoke":
		return cmdClaimSubmit(args[1:], out, errOut, "claim revoke", func(claim chain.Content) chain.Call {
			return poe.RevokeClaimCall{Claim: claim}
		})
	case "owner":
		return cmdClaimOwner(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown claim subcommand: %s\n", args[0])
		return 2
	}
}

func cmdClaimSubmit(args []string, out io.Writer, errOut io.Writer, name string, makeCall func(chain.Content) chain.Call) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(errOut)

	var file string
	var claim string
	var node string
	var sf signerFlags
	fs.StringVar(&file, "file", "", "File to fingerprint and claim")
	fs.StringVar(&claim, "claim", "", "Precomputed claim CID")
	fs.StringVar(&node, "node", defaultNode, "Node address")
	sf.register(fs)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	id, ok := resolveClaim(file, claim, errOut)
	if !ok {
		return 2
	}
	if !sf.check(errOut) {
		return 2
	}
	seed, caller, ok := sf.load(errOut)
	if !ok {
		return 2
	}

	client, ok := dialNode(node, errOut)
	if !ok {
		return 1
	}
	defer client.Close()

	return submitSigned(client, seed, caller, makeCall(id), out, errOut)
}

func cmdClaimOwner(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("claim owner", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var claim string
	var node string
	fs.StringVar(&claim, "claim", "", "Claim CID")
	fs.StringVar(&node, "node", defaultNode, "Node address")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if claim == "" {
		fmt.Fprintln(errOut, "missing --claim")
		return 2
	}

	client, ok := dialNode(node, errOut)
	if !ok {
		return 1
	}
	defer client.Close()

	owner, err := client.Owner(chain.Content(claim))
	if err != nil {
		fmt.Fprintf(errOut, "owner: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, owner)
	return 0
}

func cmdTransfer(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("transfer", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var to string
	var amount uint64
	var node string
	var sf signerFlags
	fs.StringVar(&to, "to", "", "Recipient account")
	fs.Uint64Var(&amount, "amount", 0, "Amount to transfer")
	fs.StringVar(&node, "node", defaultNode, "Node address")
	sf.register(fs)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if to == "" {
		fmt.Fprintln(errOut, "missing --to")
		return 2
	}
	if !sf.check(errOut) {
		return 2
	}
	seed, caller, ok := sf.load(errOut)
	if !ok {
		return 2
	}

	client, ok := dialNode(node, errOut)
	if !ok {
		return 1
	}
	defer client.Close()

	call := balances.TransferCall{To: chain.AccountID(to), Amount: chain.Balance(amount)}
	return submitSigned(client, seed, caller, call, out, errOut)
}

func cmdBalance(args []string, out io.Writer, errOut io.Writer) int {
	return cmdAccountQuery(args, out, errOut, "balance", func(client *grpcnode.Client, who chain.AccountID) (uint64, error) {
		b, err := client.Balance(who)
		return uint64(b), err
	})
}

func cmdNonce(args []string, out io.Writer, errOut io.Writer) int {
	return cmdAccountQuery(args, out, errOut, "nonce", func(client *grpcnode.Client, who chain.AccountID) (uint64, error) {
		n, err := client.Nonce(who)
		return uint64(n), err
	})
}

func cmdAccountQuery(args []string, out io.Writer, errOut io.Writer, name string, query func(*grpcnode.Client, chain.AccountID) (uint64, error)) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(errOut)

	var account string
	var node string
	fs.StringVar(&account, "account", "", "Account identifier")
	fs.StringVar(&node, "node", defaultNode, "Node address")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if account == "" {
		fmt.Fprintln(errOut, "missing --account")
		return 2
	}

	client, ok := dialNode(node, errOut)
	if !ok {
		return 1
	}
	defer client.Close()

	v, err := query(client, chain.AccountID(account))
	if err != nil {
		fmt.Fprintf(errOut, "%s: %v\n", name, err)
		return 1
	}
	_, _ = fmt.Fprintln(out, v)
	return 0
}

func cmdHead(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("head", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var node string
	fs.StringVar(&node, "node", defaultNode, "Node address")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	client, ok := dialNode(node, errOut)
	if !ok {
		return 1
	}
	defer client.Close()

	head, err := client.Head()
	if err != nil {
		fmt.Fprintf(errOut, "head: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "block: %d\n", head.BlockNumber)
	if head.HeadCID != "" {
		fmt.Fprintf(out, "head:  %s\n", head.HeadCID)
	}
	return 0
}

func cmdArchive(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: xdao-poe archive <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: cat")
		return 2
	}
	switch args[0] {
	case "cat":
		return cmdArchiveCat(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown archive subcommand: %s\n", args[0])
		return 2
	}
}

func cmdArchiveCat(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("archive cat", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var dir string
	var backend string
	fs.StringVar(&dir, "dir", "", "Archive directory")
	fs.StringVar(&backend, "backend", "localfs", "Archive backend name")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if dir == "" {
		fmt.Fprintln(errOut, "missing --dir")
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: xdao-poe archive cat --dir <dir> <CID>")
		return 2
	}

	id, err := cid.Decode(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "invalid CID: %v\n", err)
		return 2
	}

	cas, closeFn, err := casregistry.Open(backend, casregistry.UsageCLI, casregistry.Options{"dir": dir})
	if err != nil {
		fmt.Fprintf(errOut, "open archive: %v\n", err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	b, err := cas.Get(id)
	if err != nil {
		fmt.Fprintf(errOut, "get block: %v\n", err)
		return 1
	}
	_, _ = out.Write(b)
	return 0
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "export":
		return cmdKeyExport(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "xdao-poe key: minimal local key management")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  xdao-poe key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  xdao-poe key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  xdao-poe key list")
	fmt.Fprintln(w, "  xdao-poe key export --name <name> [--role <role>]")
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var seedHex string
	var force bool

	fs.StringVar(&name, "name", "", "Key name (directory under ~/.xdao/poe/keys)")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional ed25519 seed as 64 hex chars (for reproducible demos)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if err := keys.CheckKeyName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}
	ks, err := keys.Open("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}

	var seed []byte
	if seedHex != "" {
		var derr error
		seed, derr = keys.ParseSeedHex(seedHex)
		if derr != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", derr)
			return 2
		}
	} else {
		seed = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "rand: %v\n", err)
			return 1
		}
	}

	account, rootPath, err := ks.InitRootKey(name, seed, force)
	if err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created root key: %s\n", account)
	fmt.Fprintf(out, "Stored at: %s\n", rootPath)
	return 0
}

func cmdKeyDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var from string
	var role string
	var force bool

	fs.StringVar(&from, "from", "", "Root key name")
	fs.StringVar(&role, "role", "", "Role identifier (e.g. publisher, archivist)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if from == "" {
		fmt.Fprintln(errOut, "missing --from")
		return 2
	}
	if role == "" {
		fmt.Fprintln(errOut, "missing --role")
		return 2
	}
	if err := keys.CheckKeyName(from); err != nil {
		fmt.Fprintf(errOut, "invalid --from: %v\n", err)
		return 2
	}
	if err := keys.CheckRole(role); err != nil {
		fmt.Fprintf(errOut, "invalid --role: %v\n", err)
		return 2
	}
	ks, err := keys.Open("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	account, rolePath, err := ks.DeriveRoleKey(from, role, force)
	if err != nil {
		fmt.Fprintf(errOut, "derive role key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Created role key: %s\n", account)
	fmt.Fprintf(out, "Stored at: %s\n", rolePath)
	return 0
}

func cmdKeyExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var role string

	fs.StringVar(&name, "name", "", "Key name")
	fs.StringVar(&role, "role", "", "Optional role (if set, exports derived role key)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if err := keys.CheckKeyName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}
	if role != "" {
		if err := keys.CheckRole(role); err != nil {
			fmt.Fprintf(errOut, "invalid --role: %v\n", err)
			return 2
		}
	}
	ks, err := keys.Open("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	account, err := ks.ExportAccount(name, role)
	if err != nil {
		fmt.Fprintf(errOut, "export key: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, account)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, err := keys.Open("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	entries, err := ks.ListKeys()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s\n", e.Name)
		for _, r := range e.Roles {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}
	return 0
}
