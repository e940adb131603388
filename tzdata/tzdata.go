// Package tzdata provides a parser for the tzdata source files provided by IANA
// at https://www.iana.org/time-zones.
package tzdata

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// File represents the result of parsing a tzdata file.
// It contains the parsed rule lines, zones, and link lines, each in the order they appear in the file.
type File struct {
	RuleLines []RuleLine
	Zones     []Zone
	LinkLines []LinkLine

	// Skipped holds lines that were not understood but are not fatal,
	// for example Leap lines or continuation lines without an open zone.
	Skipped []SkippedLine
}

// SkippedLine is a line that the parser ignored.
type SkippedLine struct {
	Line   int
	Text   string
	Reason string
}

// Zone is a zone line together with its continuation lines.
// Lines are in source order; every line but the last has an UNTIL column.
type Zone struct {
	Name  string
	Lines []ZoneLine
}

// FormatError is returned for a malformed line. It aborts the parse of the whole file.
type FormatError struct {
	Line int    // Line is the 1-based line number.
	Text string // Text is the offending line.
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("line %d: %q: %v", e.Line, e.Text, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// zoneContinuationParseError returns a parse error for a zone continuation line.
func zoneContinuationParseError(lineNumber int, line string, err error) error {
	return &FormatError{lineNumber, line, fmt.Errorf("parse zone continuation: %w", err)}
}

// zoneParseError returns a parse error for a zone line.
func zoneParseError(lineNumber int, line string, err error) error {
	return &FormatError{lineNumber, line, fmt.Errorf("parse zone: %w", err)}
}

// ruleParseError returns a parse error for a rule line.
func ruleParseError(lineNumber int, line string, err error) error {
	return &FormatError{lineNumber, line, fmt.Errorf("parse rule: %w", err)}
}

// linkParseError returns a parse error for a link line.
func linkParseError(lineNumber int, line string, err error) error {
	return &FormatError{lineNumber, line, fmt.Errorf("parse link: %w", err)}
}

// Parse parses the content of a tzdata file and returns a File struct containing the parsed lines.
//
// A *FormatError is returned for the first malformed line; the returned File is empty
// in that case so that nothing from a broken file gets used.
func Parse(r io.Reader) (File, error) {
	var (
		result     File
		lineNumber int
		open       *Zone
	)
	closeZone := func() {
		if open != nil {
			result.Zones = append(result.Zones, *open)
			open = nil
		}
	}
	skip := func(line, reason string) {
		result.Skipped = append(result.Skipped, SkippedLine{Line: lineNumber, Text: line, Reason: reason})
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		fields, kind := splitLine(line)
		switch kind {
		case commentLine:
			continue
		case blankLine:
			closeZone()
			continue
		}

		if isIndented(line) {
			if open == nil {
				skip(line, "continuation line without zone")
				continue
			}
			if prev := open.Lines[len(open.Lines)-1]; !prev.Until.Defined {
				return File{}, zoneContinuationParseError(lineNumber, line, errors.New("previous line has no UNTIL column"))
			}
			zone, err := parseZoneContinuationLine(fields)
			if err != nil {
				return File{}, zoneContinuationParseError(lineNumber, line, err)
			}
			open.Lines = append(open.Lines, zone)
			continue
		}

		closeZone()
		switch keyword := fields[0]; {
		case strings.EqualFold(keyword, "Zone"):
			name, zone, err := parseZoneLine(fields)
			if err != nil {
				return File{}, zoneParseError(lineNumber, line, err)
			}
			open = &Zone{Name: name, Lines: []ZoneLine{zone}}
		case strings.EqualFold(keyword, "Rule"):
			rule, err := parseRuleLine(fields)
			if err != nil {
				return File{}, ruleParseError(lineNumber, line, err)
			}
			result.RuleLines = append(result.RuleLines, rule)
		case strings.EqualFold(keyword, "Link"):
			link, err := parseLinkLine(fields)
			if err != nil {
				return File{}, linkParseError(lineNumber, line, err)
			}
			result.LinkLines = append(result.LinkLines, link)
		default:
			skip(line, fmt.Sprintf("unknown keyword %q", keyword))
		}
	}
	closeZone()

	if err := scanner.Err(); err != nil {
		return File{}, fmt.Errorf("scanner: %w", err)
	}
	return result, nil
}

// LinkLine represents a link line.
type LinkLine struct {
	From string // TARGET column, the zone or link being aliased.
	To   string // LINK-NAME column, the alias.
}

// parseLinkLine parses a link line of the form
//
//	Link  TARGET           LINK-NAME
//	Link  Europe/Istanbul  Asia/Istanbul
//
// The TARGET may itself be a link and may be defined later in the input.
func parseLinkLine(parts []string) (LinkLine, error) {
	if len(parts) != 3 {
		return LinkLine{}, fmt.Errorf("expected 3 fields, got %d", len(parts))
	}
	var errs error
	from, err := parseZoneNAME(parts[1])
	if err != nil {
		errs = errors.Join(errs, fmt.Errorf("TARGET %q: %w", parts[1], err))
	}
	to, err := parseZoneNAME(parts[2])
	if err != nil {
		errs = errors.Join(errs, fmt.Errorf("LINK-NAME %q: %w", parts[2], err))
	}
	return LinkLine{From: from, To: to}, errs
}

// RuleLine represents a rule line.
type RuleLine struct {
	Name   string     // The NAME field of the rule line.
	From   Year       // The FROM field of the rule line.
	To     Year       // The TO field of the rule line.
	Type   string     // The reserved TYPE field, empty for "-".
	In     time.Month // The IN field of the rule line.
	On     Day        // The ON field of the rule line.
	At     Time       // The AT field of the rule line.
	Save   Time       // The SAVE field of the rule line.
	Letter string     // The LETTER/S field of the rule line, empty for "-".
}

// DateOfYear returns the IN, ON and AT columns of the rule.
func (r RuleLine) DateOfYear() DateOfYear {
	return DateOfYear{Month: r.In, Day: r.On, Time: r.At}
}

// parseRuleLine parses a rule line of the form
//
//	Rule  NAME  FROM  TO    -  IN   ON       AT     SAVE   LETTER/S
//	Rule  US    1967  1973  -  Apr  lastSun  2:00w  1:00d  D
func parseRuleLine(fields []string) (RuleLine, error) {
	if len(fields) != 10 {
		return RuleLine{}, fmt.Errorf("expected 10 fields, got %d", len(fields))
	}
	var (
		r       RuleLine
		errs    error
		err     error
		fromErr error
	)
	if r.Name, err = parseRuleNAME(fields[1]); err != nil {
		errs = errors.Join(errs, fmt.Errorf("NAME %q: %w", fields[1], err))
	}
	if r.From, fromErr = parseRuleFROM(fields[2]); fromErr != nil {
		errs = errors.Join(errs, fmt.Errorf("FROM %q: %w", fields[2], fromErr))
	}
	if r.To, err = parseRuleTO(fields[3], r.From); err != nil {
		errs = errors.Join(errs, fmt.Errorf("TO %q: %w", fields[3], err))
	} else if fromErr == nil && r.To < r.From {
		errs = errors.Join(errs, fmt.Errorf("TO %v is before FROM %v", r.To, r.From))
	}
	r.Type = parseOptional(fields[4])
	if r.In, err = parseRuleIN(fields[5]); err != nil {
		errs = errors.Join(errs, fmt.Errorf("IN %q: %w", fields[5], err))
	}
	if r.On, err = parseRuleON(fields[6]); err != nil {
		errs = errors.Join(errs, fmt.Errorf("ON %q: %w", fields[6], err))
	}
	if r.At, err = parseRuleAT(fields[7]); err != nil {
		errs = errors.Join(errs, fmt.Errorf("AT %q: %w", fields[7], err))
	}
	if r.Save, err = parseRuleSAVE(fields[8]); err != nil {
		errs = errors.Join(errs, fmt.Errorf("SAVE %q: %w", fields[8], err))
	}
	if r.Letter, err = parseRuleLETTERS(fields[9]); err != nil {
		errs = errors.Join(errs, fmt.Errorf("LETTER/S %q: %w", fields[9], err))
	}
	if errs != nil {
		return RuleLine{}, errs
	}
	return r, nil
}

// ZoneLine represents a zone line or a continuation line.
type ZoneLine struct {
	Offset time.Duration // The STDOFF field of the zone line.
	Rules  ZoneRules     // The RULES field of the zone line.
	Format string        // The FORMAT field of the zone line.
	Until  Until         // The UNTIL field of the zone line.
}

// parseZoneLine parses a zone line of the form
//
//	Zone  NAME        STDOFF  RULES   FORMAT  [UNTIL]
//	Zone  Asia/Amman  2:00    Jordan  EE%sT   2017 Oct 27 01:00
func parseZoneLine(fields []string) (string, ZoneLine, error) {
	if len(fields) < 5 {
		return "", ZoneLine{}, fmt.Errorf("expected at least 5 fields, got %d", len(fields))
	}
	if len(fields) > 9 {
		return "", ZoneLine{}, fmt.Errorf("expected at most 9 fields, got %d", len(fields))
	}
	name, err := parseZoneNAME(fields[1])
	if err != nil {
		err = fmt.Errorf("NAME %q: %w", fields[1], err)
	}
	z, lineErr := parseZoneColumns(fields[2:])
	if errs := errors.Join(err, lineErr); errs != nil {
		return "", ZoneLine{}, errs
	}
	return name, z, nil
}

// parseZoneContinuationLine parses a zone continuation line. It has the same form
// as a zone line except that the string "Zone" and the name are omitted.
func parseZoneContinuationLine(fields []string) (ZoneLine, error) {
	if len(fields) < 3 {
		return ZoneLine{}, fmt.Errorf("expected at least 3 fields, got %d", len(fields))
	}
	if len(fields) > 7 {
		return ZoneLine{}, fmt.Errorf("expected at most 7 fields, got %d", len(fields))
	}
	return parseZoneColumns(fields)
}

// parseZoneColumns parses STDOFF RULES FORMAT [UNTIL].
func parseZoneColumns(fields []string) (ZoneLine, error) {
	var (
		z    ZoneLine
		errs error
		err  error
	)
	if z.Offset, err = parseZoneSTDOFF(fields[0]); err != nil {
		errs = errors.Join(errs, fmt.Errorf("STDOFF %q: %w", fields[0], err))
	}
	if z.Rules, err = parseZoneRULES(fields[1]); err != nil {
		errs = errors.Join(errs, fmt.Errorf("RULES %q: %w", fields[1], err))
	}
	if z.Format, err = parseZoneFORMAT(fields[2]); err != nil {
		errs = errors.Join(errs, fmt.Errorf("FORMAT %q: %w", fields[2], err))
	}
	if len(fields) > 3 {
		until := strings.Join(fields[3:], " ")
		if z.Until, err = parseZoneUNTIL(until); err != nil {
			errs = errors.Join(errs, fmt.Errorf("UNTIL %q: %w", until, err))
		}
	}
	if errs != nil {
		return ZoneLine{}, errs
	}
	return z, nil
}

type lineKind int

const (
	recordLine lineKind = iota
	commentLine
	blankLine
)

// splitLine splits a line into fields separated by white space.
// An unquoted sharp character (#) introduces a comment which extends to the end of the line.
// Lines that contained nothing but a comment are reported as commentLine,
// lines that contained nothing at all as blankLine.
func splitLine(line string) ([]string, lineKind) {
	kind := blankLine
	if i := strings.Index(line, "#"); i != -1 {
		line = line[:i]
		kind = commentLine
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, kind
	}
	return fields, recordLine
}

func isIndented(line string) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

// parseOptional maps the placeholder "-" to the empty string.
func parseOptional(s string) string {
	if s == "-" {
		return ""
	}
	return s
}
