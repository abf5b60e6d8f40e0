/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: grammar.go
Description: Payload grammar for the Evogene Fuzzer. Generates candidate JSON
payloads and individual field values (names, emails, ages, zip codes, hobbies,
credentials) from weighted random distributions, deliberately mixing valid and
invalid/edge-case values so the evolutionary search can discover boundary and
error behavior in the target API.
*/

package grammar

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/kleascm/evogene-fuzzer/pkg/genome"
)

// Probability constants for every random decision point in the grammar.
// Keeping them named and centralized lets tests seed the generator and
// reason about distributions.
const (
	InvalidEmailProb     = 0.20 // Malformed email instead of a valid one
	SpecialZipcodeProb   = 0.15 // The 90210 zipcode known to upset the target
	InvalidZipcodeProb   = 0.10 // Structurally invalid zipcode
	ExtendedZipcodeProb  = 0.30 // ZIP+4 instead of plain 5 digits
	RestrictedHobbyProb  = 0.15 // Include a restricted-word hobby
	HobbiesAsStringProb  = 0.10 // Flatten the hobby list to a comma-joined string
	LongNameProb         = 0.10 // Oversized name in user payloads
	ShortNameProb        = 0.10 // Undersized name in user payloads
	SQLInjectionProb     = 0.05 // SQL-injection pattern as the name
	IncludeAgeProb       = 0.80 // User payload carries an age
	IncludeEmailProb     = 0.70 // User payload carries an email
	IncludeZipcodeProb   = 0.60 // User payload carries a zipcode
	IncludeHobbiesProb   = 0.50 // User payload carries hobbies
	MemleakFlagProb      = 0.10 // User payload carries memleak: true
	AuthExtraFieldsProb  = 0.10 // Auth payload carries extra fields
	LegacyAgeProb        = 0.70 // Legacy payload carries an age
	LegacyFlagProb       = 0.20 // Legacy payload carries created/accepted flags
	LegacyDelayProb      = 0.10 // Legacy payload requests an artificial delay
	ExtraRandomFieldProb = 0.30 // Mixed payload gains extra free-form fields
	InvalidNameProb      = 0.10 // Name() falls back to random characters
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const passwordChars = alphanumeric + "!@#$%^&*()"

var tlds = []string{"com", "org", "net", "io", "co"}

var invalidZipcodes = []string{
	"123",         // Too short
	"1234567",     // Too long
	"ABC12",       // Letters instead of numbers
	"12345-123",   // Invalid extension format
	"123456-1234", // Too many digits
	"12345-",      // Incomplete extended format
}

var commonHobbies = []string{
	"reading", "writing", "gaming", "cooking", "hiking",
	"programming", "music", "movies", "sports", "photography",
	"gardening", "painting", "travel", "fishing", "swimming",
	"biking", "running", "yoga", "meditation", "dancing",
}

var restrictedHobbies = []string{
	"hacking", "fraud", "illegal activities",
	"phishing", "spamming", "scamming",
}

var firstNames = []string{
	"John", "Jane", "Michael", "Emma", "William", "Olivia", "James",
	"Sophia", "Alexander", "Ava", "David", "Mia", "Joseph", "Isabella",
	"Daniel", "Charlotte", "Matthew", "Amelia", "Andrew", "Harper",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Jones", "Brown", "Davis", "Miller",
	"Wilson", "Moore", "Taylor", "Anderson", "Thomas", "Jackson", "White",
	"Harris", "Martin", "Thompson", "Garcia", "Martinez", "Robinson",
}

var sqlInjectionPatterns = []string{
	"' OR '1'='1",
	"'; DROP TABLE users; --",
	"' UNION SELECT * FROM users; --",
	"' DELETE FROM users WHERE '1'='1",
}

// Generator produces candidates and field values from weighted random
// distributions. Not safe for concurrent use: the engine and operators
// each hold their own instance.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator seeded from the current time
func NewGenerator() *Generator {
	return NewSeededGenerator(time.Now().UnixNano())
}

// NewSeededGenerator creates a deterministic generator for tests
func NewSeededGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// RandomChars generates a random alphanumeric string with a length in
// [minLength, maxLength]
func (g *Generator) RandomChars(minLength, maxLength int) string {
	length := minLength + g.rng.Intn(maxLength-minLength+1)
	var sb strings.Builder
	for i := 0; i < length; i++ {
		sb.WriteByte(alphanumeric[g.rng.Intn(len(alphanumeric))])
	}
	return sb.String()
}

// RandomEmail generates an email address, malformed with probability
// InvalidEmailProb (missing @, missing domain, trailing junk, double @)
func (g *Generator) RandomEmail() string {
	username := g.RandomChars(3, 8)
	domain := g.RandomChars(3, 7)
	tld := tlds[g.rng.Intn(len(tlds))]

	if g.rng.Float64() < InvalidEmailProb {
		switch g.rng.Intn(4) {
		case 0:
			return fmt.Sprintf("%s%s.%s", username, domain, tld)
		case 1:
			return fmt.Sprintf("%s@.%s", username, tld)
		case 2:
			return fmt.Sprintf("%s@%s.%s!#", username, domain, tld)
		default:
			return fmt.Sprintf("%s@@%s.%s", username, domain, tld)
		}
	}
	return fmt.Sprintf("%s@%s.%s", username, domain, tld)
}

// RandomZipcode generates a US zipcode: sometimes the special 90210
// value, sometimes structurally invalid, otherwise 5-digit or ZIP+4
func (g *Generator) RandomZipcode() string {
	if g.rng.Float64() < SpecialZipcodeProb {
		return "90210"
	}
	if g.rng.Float64() < InvalidZipcodeProb {
		return invalidZipcodes[g.rng.Intn(len(invalidZipcodes))]
	}
	if g.rng.Float64() >= ExtendedZipcodeProb {
		return g.digits(5)
	}
	return g.digits(5) + "-" + g.digits(4)
}

func (g *Generator) digits(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteByte(byte('0' + g.rng.Intn(10)))
	}
	return sb.String()
}

// RandomAge generates an age drawn uniformly from five distributions:
// valid, negative, oversized, numeric string, and unparseable string
func (g *Generator) RandomAge() genome.FieldValue {
	switch g.rng.Intn(5) {
	case 0:
		return genome.Int(int64(g.rng.Intn(121)))
	case 1:
		return genome.Int(-int64(1 + g.rng.Intn(100)))
	case 2:
		return genome.Int(int64(121 + g.rng.Intn(880)))
	case 3:
		return genome.String(fmt.Sprintf("%d", g.rng.Intn(151)))
	default:
		return genome.String(g.RandomChars(3, 10))
	}
}

// RandomHobbies generates 1-5 hobbies, occasionally including a
// restricted word and occasionally flattened to a comma-joined string
func (g *Generator) RandomHobbies() genome.FieldValue {
	count := 1 + g.rng.Intn(5)
	hobbies := make([]string, 0, count)

	if g.rng.Float64() < RestrictedHobbyProb {
		hobbies = append(hobbies, restrictedHobbies[g.rng.Intn(len(restrictedHobbies))])
		count--
	}

	available := make([]string, len(commonHobbies))
	copy(available, commonHobbies)
	for i := 0; i < count && len(available) > 0; i++ {
		idx := g.rng.Intn(len(available))
		hobbies = append(hobbies, available[idx])
		available = append(available[:idx], available[idx+1:]...)
	}

	if g.rng.Float64() < HobbiesAsStringProb {
		return genome.String(strings.Join(hobbies, ","))
	}
	return genome.List(hobbies)
}

// Name generates a realistic full name, falling back to random
// characters with probability InvalidNameProb
func (g *Generator) Name() string {
	if g.rng.Float64() < InvalidNameProb {
		return g.RandomChars(2, 20)
	}
	return firstNames[g.rng.Intn(len(firstNames))] + " " + lastNames[g.rng.Intn(len(lastNames))]
}

// Email generates an always-valid email address
func (g *Generator) Email() string {
	return fmt.Sprintf("%s@%s.%s", g.RandomChars(3, 8), g.RandomChars(3, 7), tlds[g.rng.Intn(len(tlds))])
}

// Age generates an always-valid age in [0,120]
func (g *Generator) Age() int64 {
	return int64(g.rng.Intn(121))
}

// Zipcode generates an always-valid 5-digit zipcode
func (g *Generator) Zipcode() string {
	return g.digits(5)
}

// Hobbies generates an always-valid list of 1-5 common hobbies
func (g *Generator) Hobbies() []string {
	count := 1 + g.rng.Intn(5)
	available := make([]string, len(commonHobbies))
	copy(available, commonHobbies)
	hobbies := make([]string, 0, count)
	for i := 0; i < count && len(available) > 0; i++ {
		idx := g.rng.Intn(len(available))
		hobbies = append(hobbies, available[idx])
		available = append(available[:idx], available[idx+1:]...)
	}
	return hobbies
}

// Username generates a username in one of three patterns
func (g *Generator) Username() string {
	switch g.rng.Intn(3) {
	case 0:
		return g.RandomChars(3, 8)
	case 1:
		return g.RandomChars(2, 5) + "_" + g.RandomChars(2, 5)
	default:
		return fmt.Sprintf("%s%d", g.RandomChars(3, 6), 1+g.rng.Intn(999))
	}
}

// Password generates a password of 8-16 characters including symbols
func (g *Generator) Password() string {
	length := 8 + g.rng.Intn(9)
	var sb strings.Builder
	for i := 0; i < length; i++ {
		sb.WriteByte(passwordChars[g.rng.Intn(len(passwordChars))])
	}
	return sb.String()
}

// SQLInjectionPattern returns one of the fixed SQL-injection literals,
// sometimes prefixed with random characters
func (g *Generator) SQLInjectionPattern() string {
	if g.rng.Intn(len(sqlInjectionPatterns)+1) == len(sqlInjectionPatterns) {
		return g.RandomChars(3, 8) + "' OR '1'='1"
	}
	return sqlInjectionPatterns[g.rng.Intn(len(sqlInjectionPatterns))]
}

// UserPayload generates a user-creation payload: a required name
// (occasionally oversized, undersized, or a SQL-injection pattern)
// plus probabilistic optional fields
func (g *Generator) UserPayload() *genome.Candidate {
	c := genome.NewCandidate()
	c.Set("name", genome.String(g.RandomChars(3, 15)))

	if g.rng.Float64() < LongNameProb {
		c.Set("name", genome.String(g.RandomChars(51, 100)))
	}
	if g.rng.Float64() < ShortNameProb {
		c.Set("name", genome.String(g.RandomChars(1, 2)))
	}
	if g.rng.Float64() < SQLInjectionProb {
		c.Set("name", genome.String(g.SQLInjectionPattern()))
	}

	if g.rng.Float64() < IncludeAgeProb {
		c.Set("age", g.RandomAge())
	}
	if g.rng.Float64() < IncludeEmailProb {
		c.Set("email", genome.String(g.RandomEmail()))
	}
	if g.rng.Float64() < IncludeZipcodeProb {
		c.Set("zipcode", genome.String(g.RandomZipcode()))
	}
	if g.rng.Float64() < IncludeHobbiesProb {
		c.Set("hobbies", g.RandomHobbies())
	}
	if g.rng.Float64() < MemleakFlagProb {
		c.Set("memleak", genome.Bool(true))
	}
	return c
}

// AuthPayload generates a credential payload with optional extras
func (g *Generator) AuthPayload() *genome.Candidate {
	c := genome.NewCandidate()
	if g.rng.Float64() < 0.5 {
		c.Set("username", genome.String(g.Username()))
	} else {
		c.Set("username", genome.String(g.Email()))
	}
	c.Set("password", genome.String(g.Password()))

	if g.rng.Float64() < AuthExtraFieldsProb {
		extras := []string{"remember_me", "token_lifetime", "client_id"}
		count := 1 + g.rng.Intn(len(extras))
		for i := 0; i < count && len(extras) > 0; i++ {
			idx := g.rng.Intn(len(extras))
			field := extras[idx]
			extras = append(extras[:idx], extras[idx+1:]...)
			switch field {
			case "remember_me":
				c.Set(field, genome.Bool(g.rng.Intn(2) == 1))
			case "token_lifetime":
				lifetimes := []int64{300, 900, 1800, 3600, 86400}
				c.Set(field, genome.Int(lifetimes[g.rng.Intn(len(lifetimes))]))
			case "client_id":
				c.Set(field, genome.String(g.RandomChars(10, 20)))
			}
		}
	}
	return c
}

// LegacyPayload generates a minimal payload for the legacy predict
// endpoint, including the fault-injection hints it honors
func (g *Generator) LegacyPayload() *genome.Candidate {
	c := genome.NewCandidate()
	c.Set("name", genome.String(g.RandomChars(3, 10)))

	if g.rng.Float64() < LegacyAgeProb {
		c.Set("age", g.RandomAge())
	}
	if g.rng.Float64() < LegacyFlagProb {
		c.Set("created", genome.Bool(g.rng.Intn(2) == 1))
	}
	if g.rng.Float64() < LegacyFlagProb {
		c.Set("accepted", genome.Bool(g.rng.Intn(2) == 1))
	}
	if g.rng.Float64() < LegacyDelayProb {
		c.Set("delay", genome.Float(0.1+g.rng.Float64()*1.9))
	}
	return c
}

// RandomPayload generates a mixed payload: a user or auth base with
// occasional free-form extra fields
func (g *Generator) RandomPayload() *genome.Candidate {
	var c *genome.Candidate
	if g.rng.Float64() < 0.5 {
		c = g.UserPayload()
	} else {
		c = g.AuthPayload()
	}

	if g.rng.Float64() < ExtraRandomFieldProb {
		extras := []string{"timestamp", "version", "device", "location", "status"}
		count := 1 + g.rng.Intn(3)
		for i := 0; i < count && len(extras) > 0; i++ {
			idx := g.rng.Intn(len(extras))
			field := extras[idx]
			extras = append(extras[:idx], extras[idx+1:]...)
			switch field {
			case "timestamp":
				c.Set(field, genome.Int(time.Now().Unix()))
			case "version":
				c.Set(field, genome.String(fmt.Sprintf("%d.%d.%d", 1+g.rng.Intn(5), g.rng.Intn(10), g.rng.Intn(10))))
			case "device":
				devices := []string{"mobile", "desktop", "tablet", "api"}
				c.Set(field, genome.String(devices[g.rng.Intn(len(devices))]))
			case "location":
				c.Set(field, genome.String(fmt.Sprintf("%d,%d", g.rng.Intn(181)-90, g.rng.Intn(361)-180)))
			case "status":
				statuses := []string{"active", "pending", "inactive", "deleted"}
				c.Set(field, genome.String(statuses[g.rng.Intn(len(statuses))]))
			}
		}
	}
	return c
}

// Candidate generates one candidate payload, weighted so user payloads
// dominate (4:1:1 user:auth:legacy). Always succeeds and never returns
// an empty candidate.
func (g *Generator) Candidate() *genome.Candidate {
	switch g.rng.Intn(6) {
	case 4:
		return g.AuthPayload()
	case 5:
		return g.LegacyPayload()
	default:
		return g.UserPayload()
	}
}

// ValueFor generates a fresh value appropriate for a semantic field
// name, falling back to a generic value that preserves the prior kind
// for unknown fields
func (g *Generator) ValueFor(name string, prior genome.FieldValue) genome.FieldValue {
	switch name {
	case "name":
		return genome.String(g.RandomChars(3, 10))
	case "age":
		return g.RandomAge()
	case "email":
		return genome.String(g.RandomEmail())
	case "zipcode":
		return genome.String(g.RandomZipcode())
	case "hobbies":
		return g.RandomHobbies()
	case "username", "password":
		return genome.String(g.RandomChars(4, 12))
	}
	switch prior.Kind {
	case genome.KindInt:
		return genome.Int(int64(g.rng.Intn(1001)))
	case genome.KindFloat:
		return genome.Float(g.rng.Float64() * 10)
	case genome.KindBool:
		return genome.Bool(g.rng.Intn(2) == 1)
	case genome.KindList:
		count := 1 + g.rng.Intn(5)
		items := make([]string, count)
		for i := range items {
			items[i] = g.RandomChars(3, 10)
		}
		return genome.List(items)
	default:
		return genome.String(g.RandomChars(3, 10))
	}
}

// RequiredField returns the single field guaranteed to keep a
// candidate usable when an operator would otherwise leave it empty
func (g *Generator) RequiredField() (string, genome.FieldValue) {
	return "name", genome.String(g.RandomChars(3, 10))
}
