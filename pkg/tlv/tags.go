package tlv

// Static dictionary of the EMV and interindustry tags this tool runs into
// in practice. Lookups that miss simply yield an empty description; the
// raw tag is always shown alongside it anyway.
var tagNames = map[uint32]string{
	0x42:   "Issuer Identification Number",
	0x4F:   "Application Identifier (AID)",
	0x50:   "Application Label",
	0x57:   "Track 2 Equivalent Data",
	0x5A:   "Application PAN",
	0x61:   "Application Template",
	0x62:   "File Control Parameters (FCP)",
	0x64:   "File Management Data (FMD)",
	0x6F:   "File Control Information (FCI)",
	0x70:   "Record Template",
	0x71:   "Issuer Script Template 1",
	0x72:   "Issuer Script Template 2",
	0x73:   "Directory Discretionary Template",
	0x77:   "Response Template Format 2",
	0x80:   "Response Template Format 1",
	0x82:   "Application Interchange Profile",
	0x83:   "Command Template",
	0x84:   "DF Name",
	0x87:   "Application Priority Indicator",
	0x88:   "Short File Identifier (SFI)",
	0x8C:   "CDOL1",
	0x8D:   "CDOL2",
	0x8E:   "CVM List",
	0x8F:   "CA Public Key Index",
	0x90:   "Issuer Public Key Certificate",
	0x92:   "Issuer Public Key Remainder",
	0x93:   "Signed Static Application Data",
	0x94:   "Application File Locator (AFL)",
	0x95:   "Terminal Verification Results",
	0x9A:   "Transaction Date",
	0x9C:   "Transaction Type",
	0x9D:   "Directory Definition File (DDF) Name",
	0xA5:   "FCI Proprietary Template",
	0x5F20: "Cardholder Name",
	0x5F24: "Application Expiration Date",
	0x5F25: "Application Effective Date",
	0x5F28: "Issuer Country Code",
	0x5F2A: "Transaction Currency Code",
	0x5F2D: "Language Preference",
	0x5F30: "Service Code",
	0x5F34: "Application PAN Sequence Number",
	0x5F50: "Issuer URL",
	0x5F53: "IBAN",
	0x5F54: "Bank Identifier Code (BIC)",
	0x5F55: "Issuer Country Code (alpha2)",
	0x5F56: "Issuer Country Code (alpha3)",
	0x9F02: "Amount, Authorised",
	0x9F03: "Amount, Other",
	0x9F05: "Application Discretionary Data",
	0x9F07: "Application Usage Control",
	0x9F08: "Application Version Number",
	0x9F0A: "Application Selection Registered Proprietary Data",
	0x9F0C: "Issuer Identification Number Extended",
	0x9F0D: "Issuer Action Code - Default",
	0x9F0E: "Issuer Action Code - Denial",
	0x9F0F: "Issuer Action Code - Online",
	0x9F10: "Issuer Application Data",
	0x9F11: "Issuer Code Table Index",
	0x9F12: "Application Preferred Name",
	0x9F17: "PIN Try Counter",
	0x9F1A: "Terminal Country Code",
	0x9F26: "Application Cryptogram",
	0x9F27: "Cryptogram Information Data",
	0x9F32: "Issuer Public Key Exponent",
	0x9F36: "Application Transaction Counter",
	0x9F37: "Unpredictable Number",
	0x9F33: "Terminal Capabilities",
	0x9F35: "Terminal Type",
	0x9F38: "PDOL",
	0x9F40: "Additional Terminal Capabilities",
	0x9F42: "Application Currency Code",
	0x9F44: "Application Currency Exponent",
	0x9F46: "ICC Public Key Certificate",
	0x9F47: "ICC Public Key Exponent",
	0x9F48: "ICC Public Key Remainder",
	0x9F4A: "Static Data Authentication Tag List",
	0x9F4D: "Log Entry",
	0x9F4F: "Log Format",
	0x9F66: "Terminal Transaction Qualifiers",
	0x9F6E: "Form Factor Indicator",
	0x9F7F: "Card Production Life Cycle (CPLC)",
	0xBF0C: "FCI Issuer Discretionary Data",
}

// DescribeTag returns the human name of a tag from the static dictionary,
// or an empty string for tags it does not know.
func DescribeTag(tag uint32) string {
	return tagNames[tag]
}
