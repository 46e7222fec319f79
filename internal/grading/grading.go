// Package grading maps numeric scores to letter grades and decides resit
// eligibility. It has no dependencies on storage or transport.
package grading

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Letter is a letter grade such as "AA" or "FF".
type Letter string

const (
	AA Letter = "AA"
	BA Letter = "BA"
	BB Letter = "BB"
	CB Letter = "CB"
	CC Letter = "CC"
	DC Letter = "DC"
	DD Letter = "DD"
	FD Letter = "FD"
	FF Letter = "FF"
	// DZ marks a student who did not sit the exam. It carries no score and
	// no grade points.
	DZ Letter = "DZ"
)

const (
	MinScore = 0
	MaxScore = 100
)

// ErrInvalidGrade is returned for tokens that are neither DZ nor a score in range.
var ErrInvalidGrade = errors.New("invalid grade")

type band struct {
	floor  float64
	letter Letter
}

// bands are ordered from the highest floor down; the first floor the score
// reaches wins.
var bands = []band{
	{90, AA},
	{85, BA},
	{80, BB},
	{75, CB},
	{70, CC},
	{65, DC},
	{60, DD},
	{50, FD},
	{0, FF},
}

var points = map[Letter]float64{
	AA: 4.0,
	BA: 3.5,
	BB: 3.0,
	CB: 2.5,
	CC: 2.0,
	DC: 1.5,
	DD: 1.0,
	FD: 0.5,
	FF: 0.0,
}

var resitEligible = map[Letter]struct{}{
	FF: {},
	FD: {},
	DD: {},
	DC: {},
}

// Result is the classification of a raw grade token.
type Result struct {
	Letter Letter
	Score  *float64
}

// Classify turns a raw grade token into a letter and an optional score.
func Classify(token string) (Result, error) {
	token = strings.TrimSpace(token)
	if strings.EqualFold(token, string(DZ)) {
		return Result{Letter: DZ}, nil
	}
	if token == "" {
		return Result{}, ErrInvalidGrade
	}
	score, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		return Result{}, ErrInvalidGrade
	}
	if score < MinScore || score > MaxScore {
		return Result{}, ErrInvalidGrade
	}
	// Scores are stored with two decimals; the letter follows the stored value.
	score = math.Round(score*100) / 100
	return Result{Letter: LetterFor(score), Score: &score}, nil
}

// LetterFor maps a score in [0,100] to its letter band.
func LetterFor(score float64) Letter {
	for _, b := range bands {
		if score >= b.floor {
			return b.letter
		}
	}
	return FF
}

// IsResitEligible reports whether the letter allows a resit registration.
func IsResitEligible(letter Letter) bool {
	_, ok := resitEligible[letter]
	return ok
}

// EligibleLetters lists the letters that allow a resit, best first.
func EligibleLetters() []Letter {
	return []Letter{DC, DD, FD, FF}
}

// Points returns the grade points for a letter. DZ and unknown letters report false.
func Points(letter Letter) (float64, bool) {
	p, ok := points[letter]
	return p, ok
}

// Valid reports whether letter is one of the known letters, DZ included.
func (l Letter) Valid() bool {
	if l == DZ {
		return true
	}
	_, ok := points[l]
	return ok
}

// GPA averages the grade points of letters that carry points, rounded to two
// decimals. It returns nil when nothing counts.
func GPA(letters []Letter) *float64 {
	var sum float64
	var n int
	for _, l := range letters {
		p, ok := Points(l)
		if !ok {
			continue
		}
		sum += p
		n++
	}
	if n == 0 {
		return nil
	}
	gpa := math.Round(sum/float64(n)*100) / 100
	return &gpa
}
