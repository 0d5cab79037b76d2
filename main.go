package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gookit/color"
	"go.uber.org/zap"

	"voting-protocol/election"
	"voting-protocol/encryption"
	"voting-protocol/logging"
	"voting-protocol/models"
	"voting-protocol/registry"
	"voting-protocol/service"
	"voting-protocol/storage"
)

// Config is the per-invocation setup. One process runs one role; values move
// between role instances by the operator retyping what the previous role
// printed.
type Config struct {
	Role           string
	Modulus        string // decimal N, caster/validator
	FactorP        string // decimal key factors, validator/combiner
	FactorQ        string
	VoterCount     int
	CandidateCount int
	RandomnessBits int
	Order          string
	LocalityID     string
	Choice         int
	StorageDir     string
	Registry       string // locality registry file, validator/register
	LocalityKey    string // hex attestation key, caster
	PubKey         string // hex locality public key, register
	Debug          bool
}

func parseFlags() *Config {
	config := &Config{}

	flag.StringVar(&config.Role, "role", "demo", "Role to run: caster, validator, combiner, register or demo")
	flag.StringVar(&config.Modulus, "n", "", "Authority public modulus N (decimal)")
	flag.StringVar(&config.FactorP, "p", "", "Authority key factor p (decimal, combiner/validator)")
	flag.StringVar(&config.FactorQ, "q", "", "Authority key factor q (decimal, combiner/validator)")
	flag.IntVar(&config.VoterCount, "voters", 16, "Maximum votes per election")
	flag.IntVar(&config.CandidateCount, "candidates", 3, "Number of candidates")
	flag.IntVar(&config.RandomnessBits, "randbits", 14, "Width of the encryption nonce in bits")
	flag.StringVar(&config.Order, "order", "asc", "Slot order: asc or desc")
	flag.StringVar(&config.LocalityID, "locality", "local", "Locality identifier")
	flag.IntVar(&config.Choice, "choice", -1, "Candidate choice (caster; prompts when unset)")
	flag.StringVar(&config.StorageDir, "storage", "data", "Directory for audit ledgers")
	flag.StringVar(&config.Registry, "registry", "", "Locality registry file (validator, register)")
	flag.StringVar(&config.LocalityKey, "localitykey", "", "Locality attestation key in hex (caster)")
	flag.StringVar(&config.PubKey, "pubkey", "", "Locality public key in hex (register)")
	flag.BoolVar(&config.Debug, "debug", false, "Verbose logging")
	flag.Parse()

	return config
}

func main() {
	config := parseFlags()
	logger := logging.New(config.Debug)
	defer logger.Sync()

	store, err := storage.NewAuditStore(config.StorageDir)
	if err != nil {
		log.Fatalf("Failed to open audit store: %v", err)
	}

	switch config.Role {
	case "caster":
		err = runCaster(config, store, logger)
	case "validator":
		err = runValidator(config, store, logger)
	case "combiner":
		err = runCombiner(config, store, logger)
	case "register":
		err = runRegister(config)
	case "demo":
		err = runDemo(config, logger)
	default:
		err = fmt.Errorf("unknown role %q", config.Role)
	}
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}
}

func electionParams(config *Config, n *big.Int) election.Parameters {
	order := election.OrderAscending
	if strings.HasPrefix(config.Order, "desc") {
		order = election.OrderDescending
	}
	return election.Parameters{
		N:              n,
		VoterCount:     config.VoterCount,
		CandidateCount: config.CandidateCount,
		RandomnessBits: config.RandomnessBits,
		Order:          order,
	}
}

func parseModulus(config *Config) (*big.Int, error) {
	n, ok := new(big.Int).SetString(config.Modulus, 10)
	if !ok || n.Sign() <= 0 {
		return nil, fmt.Errorf("flag -n must carry the decimal public modulus")
	}
	return n, nil
}

func parseAuthorityKey(config *Config) (*encryption.PaillierPrivateKey, error) {
	p, okP := new(big.Int).SetString(config.FactorP, 10)
	q, okQ := new(big.Int).SetString(config.FactorQ, 10)
	if !okP || !okQ {
		return nil, fmt.Errorf("flags -p and -q must carry the decimal key factors")
	}
	return encryption.NewPaillierKeyFromFactors(p, q)
}

func runCaster(config *Config, store *storage.AuditStore, logger *zap.SugaredLogger) error {
	n, err := parseModulus(config)
	if err != nil {
		return err
	}
	params := electionParams(config, n)
	scheme := encryption.NewPaillier(encryption.NewPaillierPublicKey(n), params.RandomnessBits)

	caster, err := service.NewCaster(config.LocalityID, params, scheme,
		service.NewElectionSession(24*time.Hour), logger)
	if err != nil {
		return err
	}
	metrics := service.NewPhaseMetrics()
	caster.SetMetrics(metrics)

	if config.LocalityKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(config.LocalityKey, "0x"))
		if err != nil {
			return fmt.Errorf("flag -localitykey: %w", err)
		}
		caster.SetLocalityKey(key)
		color.Green.Printf("locality public key: %x\n", crypto.FromECDSAPub(&key.PublicKey))
	}

	reader := bufio.NewScanner(os.Stdin)
	choice := config.Choice
	var ballot *models.Ballot
	for ballot == nil {
		if choice >= 0 {
			ballot, err = caster.Cast(choice)
			if err == nil {
				break
			}
			if !errors.Is(err, election.ErrInvalidCandidate) {
				return err
			}
			color.Red.Printf("rejected: %v\n", err)
		}
		color.Cyan.Printf("candidate choice [0..%d]: ", params.CandidateCount-1)
		if !reader.Scan() {
			return fmt.Errorf("no choice supplied")
		}
		if _, err := fmt.Sscanf(strings.TrimSpace(reader.Text()), "%d", &choice); err != nil {
			choice = -1
		}
	}

	if err := appendJSON(store, storage.PhaseBallots, ballot); err != nil {
		return err
	}
	if err := printJSON("ballot for locality peers", ballot); err != nil {
		return err
	}

	color.Cyan.Println("peer ballots, one JSON per line, blank line to finish:")
	var peers []models.Ballot
	for reader.Scan() {
		line := strings.TrimSpace(reader.Text())
		if line == "" {
			break
		}
		var ballot models.Ballot
		if err := json.Unmarshal([]byte(line), &ballot); err != nil {
			color.Red.Printf("unreadable ballot dropped: %v\n", err)
			continue
		}
		peers = append(peers, ballot)
	}

	out, err := caster.Aggregate(peers)
	if err != nil {
		return err
	}
	if err := appendJSON(store, storage.PhaseShares, out); err != nil {
		return err
	}

	logger.Debugw("phase timings", "metrics", metrics.Snapshot())
	return printJSON("locality share Mul(c)", out)
}

// wireValidator builds the phase-2 role from the flags, attaching the
// locality registry and a metrics collector when configured.
func wireValidator(config *Config, logger *zap.SugaredLogger) (*service.Validator, *service.PhaseMetrics, error) {
	key, err := parseAuthorityKey(config)
	if err != nil {
		return nil, nil, err
	}
	params := electionParams(config, key.N)

	scheme := encryption.NewPaillier(&key.PublicKey, params.RandomnessBits)
	decryptor := encryption.NewPaillierDecryptor(key, params.RandomnessBits)
	check := service.NewTrialDecryptValidator(params, decryptor)

	validator, err := service.NewValidator(params, scheme, check, logger)
	if err != nil {
		return nil, nil, err
	}
	if config.Registry != "" {
		reg, err := openRegistry(config)
		if err != nil {
			return nil, nil, err
		}
		validator.SetRegistry(reg)
	}
	metrics := service.NewPhaseMetrics()
	validator.SetMetrics(metrics)
	return validator, metrics, nil
}

func runValidator(config *Config, store *storage.AuditStore, logger *zap.SugaredLogger) error {
	validator, metrics, err := wireValidator(config, logger)
	if err != nil {
		return err
	}

	color.Cyan.Println("remote shares cMi, one JSON per line, blank line to finish:")
	shares, err := readShares(os.Stdin)
	if err != nil {
		return err
	}

	out, err := validator.Filter(shares)
	if err != nil {
		return err
	}
	if err := appendJSON(store, storage.PhaseShares, out); err != nil {
		return err
	}

	logger.Debugw("phase timings", "metrics", metrics.Snapshot())
	return printJSON("accepted shares", out)
}

func runCombiner(config *Config, store *storage.AuditStore, logger *zap.SugaredLogger) error {
	key, err := parseAuthorityKey(config)
	if err != nil {
		return err
	}
	params := electionParams(config, key.N)
	decryptor := encryption.NewPaillierDecryptor(key, params.RandomnessBits)

	combiner, err := service.NewCombiner(params, decryptor, logger)
	if err != nil {
		return err
	}
	metrics := service.NewPhaseMetrics()
	combiner.SetMetrics(metrics)

	reader := bufio.NewScanner(os.Stdin)
	color.Cyan.Println("local share Mul(c), one JSON line:")
	if !reader.Scan() {
		return fmt.Errorf("no local share supplied")
	}
	var local models.CasterOutput
	if err := json.Unmarshal([]byte(strings.TrimSpace(reader.Text())), &local); err != nil {
		return fmt.Errorf("unreadable local share: %w", err)
	}

	color.Cyan.Println("accepted remote shares, one JSON per line, blank line to finish:")
	accepted, err := readShares(os.Stdin)
	if err != nil {
		return err
	}

	out, err := combiner.Tally(local, accepted)
	if err != nil {
		return err
	}
	if err := appendJSON(store, storage.PhaseTally, out); err != nil {
		return err
	}

	color.Green.Printf("m_final = %s\n", out.Plaintext.String())
	for i, count := range out.Tally {
		color.Green.Printf("candidate %d: %d votes\n", i, count)
	}
	logger.Debugw("phase timings", "metrics", metrics.Snapshot())
	return nil
}

// runRegister adds a locality's attestation public key to the registry the
// validator later checks shares against.
func runRegister(config *Config) error {
	if config.Registry == "" {
		return fmt.Errorf("flag -registry is required to register a locality")
	}
	pub, err := hex.DecodeString(strings.TrimPrefix(config.PubKey, "0x"))
	if err != nil || len(pub) == 0 {
		return fmt.Errorf("flag -pubkey must carry the locality public key in hex")
	}

	reg, err := openRegistry(config)
	if err != nil {
		return err
	}
	if err := reg.Register(&registry.LocalityDetails{
		LocalityID: config.LocalityID,
		PublicKey:  pub,
	}); err != nil {
		return err
	}

	color.Green.Printf("locality %s registered\n", config.LocalityID)
	return nil
}

func openRegistry(config *Config) (*registry.FileRegistry, error) {
	return registry.NewFileRegistry(registry.RegistryConfig{
		FilePath: config.Registry,
		AutoSave: true,
	})
}

// runDemo runs the whole three-phase pipeline in process over memory relays,
// with a throwaway authority key.
func runDemo(config *Config, logger *zap.SugaredLogger) error {
	key, err := encryption.GeneratePaillierKey(rand.Reader, 64)
	if err != nil {
		return err
	}
	params := electionParams(config, key.N)

	scheme := encryption.NewPaillier(&key.PublicKey, params.RandomnessBits)
	decryptor := encryption.NewPaillierDecryptor(key, params.RandomnessBits)
	check := service.NewTrialDecryptValidator(params, decryptor)

	pipeline := service.NewPipeline(params, scheme, decryptor, check, logger)
	out, err := pipeline.Run(config.LocalityID, []int{0, 0, 2}, nil)
	if err != nil {
		return err
	}

	color.Green.Printf("N = %s\n", key.N.String())
	color.Green.Printf("m_final = %s\n", out.Plaintext.String())
	for i, count := range out.Tally {
		color.Green.Printf("candidate %d: %d votes\n", i, count)
	}
	return nil
}

func readShares(in *os.File) ([]models.CasterOutput, error) {
	reader := bufio.NewScanner(in)
	var shares []models.CasterOutput
	for reader.Scan() {
		line := strings.TrimSpace(reader.Text())
		if line == "" {
			break
		}
		var share models.CasterOutput
		if err := json.Unmarshal([]byte(line), &share); err != nil {
			color.Red.Printf("unreadable share dropped: %v\n", err)
			continue
		}
		shares = append(shares, share)
	}
	return shares, reader.Err()
}

func appendJSON(store *storage.AuditStore, phase string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = store.Append(phase, data)
	return err
}

func printJSON(label string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	color.Green.Printf("%s:\n%s\n", label, string(data))
	return nil
}
