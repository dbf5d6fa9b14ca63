// Package profile manages the Chrome user-data directories the browser runs with.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/xkilldash9x/taxgo/internal/prompt"
)

// Prefix marks directories under the root that are taxgo profiles.
const Prefix = "google_"

const invalidChars = `\/:*?"<>|`

// ErrNoProfile is returned when the operator declines to create a profile.
var ErrNoProfile = errors.New("no profile selected")

// Profile is one user-data directory.
type Profile struct {
	// Name includes the google_ prefix.
	Name string
	Dir  string
}

// DisplayName is the name without the google_ prefix.
func (p Profile) DisplayName() string {
	return strings.TrimPrefix(p.Name, Prefix)
}

// WithPrefix adds the google_ prefix to name unless it is already there.
func WithPrefix(name string) string {
	if name == "" || strings.HasPrefix(name, Prefix) {
		return name
	}
	return Prefix + name
}

// ValidateName rejects empty names and names with path or shell metacharacters.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("프로필 이름을 입력해주세요")
	}
	if strings.ContainsAny(name, invalidChars) {
		return fmt.Errorf("프로필 이름에 다음 문자를 사용할 수 없습니다: %s", strings.Join(strings.Split(invalidChars, ""), " "))
	}
	return nil
}

// ExpandRoot resolves a leading ~ in root.
func ExpandRoot(root string) (string, error) {
	dir, err := homedir.Expand(root)
	if err != nil {
		return "", fmt.Errorf("failed to expand profile root %q: %w", root, err)
	}
	return dir, nil
}

// Discover lists the google_ directories under root that hold a Default or
// Profile* subdirectory, sorted by name. A missing root is created and
// yields no profiles.
func Discover(root string) ([]Profile, error) {
	dir, err := ExpandRoot(root)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create profile root: %w", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile root: %w", err)
	}

	var profiles []Profile
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), Prefix) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if hasUserData(path) {
			profiles = append(profiles, Profile{Name: e.Name(), Dir: path})
		}
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles, nil
}

func hasUserData(dir string) bool {
	if info, err := os.Stat(filepath.Join(dir, "Default")); err == nil && info.IsDir() {
		return true
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "Profile") {
			return true
		}
	}
	return false
}

// Create makes root/google_<name>/Default. It fails if the profile exists.
func Create(root, name string) (Profile, error) {
	if err := ValidateName(name); err != nil {
		return Profile{}, err
	}
	dir, err := ExpandRoot(root)
	if err != nil {
		return Profile{}, err
	}
	full := WithPrefix(name)
	path := filepath.Join(dir, full)
	if _, err := os.Stat(path); err == nil {
		return Profile{}, fmt.Errorf("'%s' 프로필이 이미 존재합니다", full)
	}
	if err := os.MkdirAll(filepath.Join(path, "Default"), 0o755); err != nil {
		return Profile{}, fmt.Errorf("프로필 생성 중 오류가 발생했습니다: %w", err)
	}
	return Profile{Name: full, Dir: path}, nil
}

// Select picks the profile to launch with. A defaultName matching a
// discovered profile, with or without the prefix, is chosen without asking.
// Otherwise the operator picks from a numbered list whose last entry
// creates a new profile. Listings go to out.
func Select(ctx context.Context, root, defaultName string, p prompt.Prompter, out io.Writer) (Profile, error) {
	profiles, err := Discover(root)
	if err != nil {
		return Profile{}, err
	}

	if defaultName != "" && len(profiles) > 0 {
		want := WithPrefix(defaultName)
		for _, prof := range profiles {
			if prof.Name == want {
				fmt.Fprintf(out, "\n자동 선택된 프로필: %s\n", prof.DisplayName())
				return prof, nil
			}
		}
		fmt.Fprintf(out, "\n⚠️ 지정한 프로필을 찾을 수 없습니다: %s\n", defaultName)
	}

	if len(profiles) == 0 {
		fmt.Fprintln(out, "\n사용 가능한 프로필이 없습니다.")
		ok, err := p.Confirm(ctx, "새 프로필을 생성하시겠습니까? (y/n): ")
		if err != nil {
			return Profile{}, err
		}
		if !ok {
			return Profile{}, ErrNoProfile
		}
		return createInteractive(ctx, root, p, out)
	}

	fmt.Fprintln(out, "\n사용 가능한 프로필 목록:")
	for i, prof := range profiles {
		fmt.Fprintf(out, "%d. %s\n", i+1, prof.DisplayName())
	}
	fmt.Fprintf(out, "%d. 새 프로필 생성\n", len(profiles)+1)

	for {
		answer, err := p.Ask(ctx, "\n사용할 프로필 번호를 선택하세요: ")
		if err != nil {
			return Profile{}, err
		}
		choice, err := strconv.Atoi(answer)
		switch {
		case err != nil:
			fmt.Fprintln(out, "숫자를 입력해주세요.")
		case choice >= 1 && choice <= len(profiles):
			prof := profiles[choice-1]
			fmt.Fprintf(out, "\n선택된 프로필: %s\n", prof.DisplayName())
			return prof, nil
		case choice == len(profiles)+1:
			prof, err := createInteractive(ctx, root, p, out)
			if errors.Is(err, ErrNoProfile) {
				continue
			}
			return prof, err
		default:
			fmt.Fprintln(out, "유효하지 않은 번호입니다. 다시 선택해주세요.")
		}
	}
}

// createInteractive asks for a name until a profile is created. Invalid or
// existing names ask again; a filesystem failure offers one retry question.
func createInteractive(ctx context.Context, root string, p prompt.Prompter, out io.Writer) (Profile, error) {
	for {
		name, err := p.Ask(ctx, "새 프로필 이름을 입력하세요: ")
		if err != nil {
			return Profile{}, err
		}
		if err := ValidateName(name); err != nil {
			fmt.Fprintln(out, err.Error())
			continue
		}
		dir, err := ExpandRoot(root)
		if err != nil {
			return Profile{}, err
		}
		if _, err := os.Stat(filepath.Join(dir, WithPrefix(name))); err == nil {
			fmt.Fprintf(out, "'%s' 프로필이 이미 존재합니다.\n", WithPrefix(name))
			continue
		}
		prof, err := Create(root, name)
		if err == nil {
			fmt.Fprintf(out, "'%s' 프로필이 생성되었습니다.\n", prof.Name)
			return prof, nil
		}
		fmt.Fprintln(out, err.Error())
		retry, err := p.Confirm(ctx, "다시 시도하시겠습니까? (y/n): ")
		if err != nil {
			return Profile{}, err
		}
		if !retry {
			return Profile{}, ErrNoProfile
		}
	}
}
