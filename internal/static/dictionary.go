package static

import "strings"

// suspiciousAPIs are imported symbol names associated with injection,
// persistence, evasion and network staging.
var suspiciousAPIs = []string{
	"CreateProcess", "CreateRemoteThread", "WriteProcessMemory", "ReadProcessMemory",
	"VirtualAlloc", "VirtualProtect", "OpenProcess", "NtUnmapViewOfSection",
	"QueueUserAPC", "SetThreadContext", "ResumeThread", "GetProcAddress",
	"LoadLibrary", "SetWindowsHookEx", "GetAsyncKeyState",
	"RegCreateKey", "RegSetValue", "RegDeleteKey",
	"InternetOpen", "InternetConnect", "HttpSendRequest", "URLDownloadToFile",
	"WinExec", "ShellExecute", "CreateService", "StartService",
	"IsDebuggerPresent", "CheckRemoteDebuggerPresent", "AdjustTokenPrivileges",
	"CryptEncrypt", "CryptDecrypt",
}

// suspiciousImportKeywords catch API families not named explicitly above. They only
// feed the numeric import score, never the reported suspicious import list.
var suspiciousImportKeywords = []string{"process", "memory", "registry", "internet"}

// suspiciousStringTokens are matched case-insensitively against extracted strings.
var suspiciousStringTokens = []string{
	"CreateProcess", "WriteProcessMemory", "VirtualAlloc", "GetProcAddress",
	"LoadLibrary", "RegCreateKey", "RegSetValue", "InternetOpen",
	"HttpSendRequest", "CreateFile", "WriteFile", "DeleteFile",
	"CreateService", "StartService", "cmd.exe", "powershell",
	"whoami", "net user", "taskkill", "schtasks",
	"keylogger", "backdoor", "shellcode", "wscript", "cscript",
	"CurrentVersion\\Run",
}

// commonSections are section names emitted by mainstream linkers.
var commonSections = map[string]bool{
	".text":  true,
	".data":  true,
	".rdata": true,
	".bss":   true,
	".rsrc":  true,
	".reloc": true,
	".idata": true,
	".edata": true,
	".pdata": true,
	".tls":   true,
}

// packerSectionMarkers are substrings of section names left behind by packers.
var packerSectionMarkers = []string{
	"upx", ".packed", ".compressed", ".aspack", ".adata", ".petite",
	"mpress", ".nsp", ".themida", ".vmp", ".enigma",
}

// riskyExtensions are script and legacy executable extensions commonly abused for delivery.
var riskyExtensions = []string{".scr", ".pif", ".com", ".bat", ".cmd", ".vbs", ".js"}

func containsFold(s string, tokens []string) bool {
	lower := strings.ToLower(s)
	for _, tok := range tokens {
		if strings.Contains(lower, strings.ToLower(tok)) {
			return true
		}
	}
	return false
}

// IsSuspiciousImport reports whether an imported symbol is a known abused API.
func IsSuspiciousImport(name string) bool {
	return containsFold(name, suspiciousAPIs)
}

// MatchesImportKeyword reports whether an imported symbol belongs to a sensitive
// API family (process, memory, registry or internet access).
func MatchesImportKeyword(name string) bool {
	return containsFold(name, suspiciousImportKeywords)
}

// IsSuspiciousString reports whether an extracted string contains a suspicious token.
func IsSuspiciousString(s string) bool {
	return containsFold(s, suspiciousStringTokens)
}

// IsPackerSection reports whether a section name matches a known packer.
func IsPackerSection(name string) bool {
	return containsFold(name, packerSectionMarkers)
}

// IsUnusualSection reports whether a section name is outside the common linker set.
func IsUnusualSection(name string) bool {
	return !commonSections[name]
}

// HasRiskyExtension reports whether filename ends in a risky extension.
func HasRiskyExtension(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range riskyExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
