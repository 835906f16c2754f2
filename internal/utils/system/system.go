package system

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/open-edge-platform/rpm-depcheck/internal/utils/logger"
	"github.com/open-edge-platform/rpm-depcheck/internal/utils/shell"
)

var OsReleaseFile = "/etc/os-release"

// OsInfo is what /etc/os-release and uname tell about the host.
type OsInfo struct {
	Name    string   // e.g. "Fedora Linux"
	Version string   // e.g. "40"
	ID      string   // e.g. "fedora"
	IDLike  []string // e.g. ["rhel", "centos"]
	Arch    string   // e.g. "x86_64"
}

// GetHostArch returns the machine name reported by uname -m, which is also
// the rpm build architecture.
func GetHostArch() (string, error) {
	output, err := shell.ExecCmd("uname -m", nil)
	if err != nil {
		return "", fmt.Errorf("failed to get host architecture: %w", err)
	}
	arch := strings.TrimSpace(output)
	if arch == "" {
		return "", fmt.Errorf("failed to get host architecture: empty uname output")
	}
	return arch, nil
}

func GetHostOsInfo() (*OsInfo, error) {
	log := logger.Logger()

	arch, err := GetHostArch()
	if err != nil {
		log.Errorf("Failed to get host architecture: %v", err)
		return nil, err
	}
	info := &OsInfo{Arch: arch}

	file, err := os.Open(OsReleaseFile)
	if err != nil {
		return info, fmt.Errorf("failed to detect host OS info: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), "\"'")
		switch key {
		case "NAME":
			info.Name = value
		case "VERSION_ID":
			info.Version = value
		case "ID":
			info.ID = value
		case "ID_LIKE":
			info.IDLike = strings.Fields(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return info, fmt.Errorf("reading %s: %w", OsReleaseFile, err)
	}

	log.Debugf("Detected OS info: %s %s %s", info.Name, info.Version, info.Arch)
	return info, nil
}

var rpmDistros = []string{"fedora", "rhel", "centos", "rocky", "almalinux", "ol", "amzn",
	"suse", "opensuse", "sles", "azurelinux", "mariner", "emt", "openeuler"}

// IsRpmBased reports whether the distribution or one it derives from uses rpm.
func (i *OsInfo) IsRpmBased() bool {
	ids := append([]string{i.ID}, i.IDLike...)
	for _, id := range ids {
		for _, distro := range rpmDistros {
			if id == distro || strings.HasPrefix(id, distro+"-") {
				return true
			}
		}
	}
	return false
}

// CheckRpmHost warns when the host does not look like an rpm distribution,
// since installed-package queries would then find nothing.
func CheckRpmHost() {
	info, err := GetHostOsInfo()
	if err != nil {
		logger.Logger().Debugf("host OS detection failed: %v", err)
		return
	}
	if !info.IsRpmBased() {
		logger.Logger().Warnf("host OS %s (%s) is not rpm based, installed package queries may fail", info.Name, info.ID)
	}
}
