package normalizer

import "regexp"

// NewECSJSONParser recognizes Elastic Common Schema JSON documents.
func NewECSJSONParser() *DeclarativeParser {
	return &DeclarativeParser{
		id:               "ecs-json",
		requiredPatterns: []*regexp.Regexp{regexp.MustCompile(`"@timestamp"|"ecs"\s*:`)},
		minSize:          2,
		jsonMode:         true,
		mappings: []FieldMapping{
			{Source: "@timestamp", CIMField: "event_timestamp"},
			{Source: "source.ip", CIMField: "source_ip", Transforms: []Transform{IPCoerce()}},
			{Source: "destination.ip", CIMField: "destination_ip", Transforms: []Transform{IPCoerce()}},
			{Source: "user.name", CIMField: "user"},
			{Source: "host.name", CIMField: "host"},
			{Source: "event.action", CIMField: "action"},
			{Source: "url.path", CIMField: "url"},
			{Source: "process.name", CIMField: "process"},
		},
	}
}

// NewSplunkCIMParser recognizes Splunk Common Information Model-style
// key-value logs (src=, dest=, user=, action=).
func NewSplunkCIMParser() *DeclarativeParser {
	return &DeclarativeParser{
		id:                "splunk-cim",
		requiredPatterns:  []*regexp.Regexp{regexp.MustCompile(`\bsrc=`), regexp.MustCompile(`\bdest=`)},
		minSize:           4,
		keyValueMode:      true,
		pairSeparator:     " ",
		keyValueSeparator: "=",
		mappings: []FieldMapping{
			{Source: "src", CIMField: "source_ip", Transforms: []Transform{IPCoerce()}},
			{Source: "dest", CIMField: "destination_ip", Transforms: []Transform{IPCoerce()}},
			{Source: "dest_port", CIMField: "destination_port", Transforms: []Transform{IntegerCoerce()}},
			{Source: "src_port", CIMField: "source_port", Transforms: []Transform{IntegerCoerce()}},
			{Source: "user", CIMField: "user"},
			{Source: "action", CIMField: "action"},
			{Source: "app", CIMField: "application"},
		},
	}
}

// NewWindowsEventParser recognizes the textual rendering of a Windows
// Security/System event log entry.
func NewWindowsEventParser() *DeclarativeParser {
	primary := regexp.MustCompile(
		`(?s)TimeCreated:\s*(?P<win_time>\S+).*?EventID:\s*(?P<win_event_id>\d+).*?Computer:\s*(?P<win_computer>\S+)(?:.*?TargetUserName:\s*(?P<win_user>\S+))?(?:.*?IpAddress:\s*(?P<win_ip>\S+))?`)
	return &DeclarativeParser{
		id:               "windows-event",
		requiredPatterns: []*regexp.Regexp{regexp.MustCompile(`EventID:`), regexp.MustCompile(`TimeCreated:`)},
		minSize:          10,
		primary:          primary,
		mappings: []FieldMapping{
			{Source: "win_time", CIMField: "event_timestamp"},
			{Source: "win_event_id", CIMField: "event_code"},
			{Source: "win_computer", CIMField: "host"},
			{Source: "win_user", CIMField: "user"},
			{Source: "win_ip", CIMField: "source_ip", Transforms: []Transform{IPCoerce()}},
		},
	}
}

// NewCiscoASAParser recognizes Cisco ASA firewall syslog messages, e.g.
// "%ASA-6-302013: Built outbound TCP connection ... outside:1.2.3.4/443 ... inside:10.0.0.5/5100".
func NewCiscoASAParser() *DeclarativeParser {
	primary := regexp.MustCompile(
		`%ASA-(?P<asa_severity>\d)-(?P<asa_msgid>\d+):.*?outside:(?P<asa_src>[0-9.]+)/(?P<asa_src_port>\d+).*?inside:(?P<asa_dst>[0-9.]+)/(?P<asa_dst_port>\d+)`)
	return &DeclarativeParser{
		id:               "cisco-asa",
		requiredPatterns: []*regexp.Regexp{regexp.MustCompile(`%ASA-\d-\d+:`)},
		minSize:          10,
		primary:          primary,
		mappings: []FieldMapping{
			{Source: "asa_msgid", CIMField: "event_code"},
			{Source: "asa_src", CIMField: "source_ip", Transforms: []Transform{IPCoerce()}},
			{Source: "asa_src_port", CIMField: "source_port", Transforms: []Transform{IntegerCoerce()}},
			{Source: "asa_dst", CIMField: "destination_ip", Transforms: []Transform{IPCoerce()}},
			{Source: "asa_dst_port", CIMField: "destination_port", Transforms: []Transform{IntegerCoerce()}},
		},
	}
}

// NewPaloAltoParser recognizes PAN-OS CSV TRAFFIC/THREAT log lines.
func NewPaloAltoParser() *DeclarativeParser {
	primary := regexp.MustCompile(
		`(?P<pan_subtype>TRAFFIC|THREAT),[^,]*,(?P<pan_time>[0-9/: ]+),[^,]*,[^,]*,(?P<pan_src>[0-9.]+),(?P<pan_dst>[0-9.]+)`)
	return &DeclarativeParser{
		id:               "palo-alto",
		requiredPatterns: []*regexp.Regexp{regexp.MustCompile(`,(TRAFFIC|THREAT),`)},
		minSize:          10,
		primary:          primary,
		mappings: []FieldMapping{
			{Source: "pan_subtype", CIMField: "action"},
			{Source: "pan_src", CIMField: "source_ip", Transforms: []Transform{IPCoerce()}},
			{Source: "pan_dst", CIMField: "destination_ip", Transforms: []Transform{IPCoerce()}},
		},
	}
}

// NewF5Parser recognizes F5 BIG-IP ASM/LTM key-value log lines.
func NewF5Parser() *DeclarativeParser {
	return &DeclarativeParser{
		id:                "f5-bigip",
		requiredPatterns:  []*regexp.Regexp{regexp.MustCompile(`unit_hostname=|ASM:`)},
		minSize:           10,
		keyValueMode:      true,
		pairSeparator:     ",",
		keyValueSeparator: "=",
		mappings: []FieldMapping{
			{Source: "src_ip", CIMField: "source_ip", Transforms: []Transform{Trim(), IPCoerce()}},
			{Source: "dest_ip", CIMField: "destination_ip", Transforms: []Transform{Trim(), IPCoerce()}},
			{Source: "http_class_name", CIMField: "application", Transforms: []Transform{Trim()}},
			{Source: "unit_hostname", CIMField: "host", Transforms: []Transform{Trim()}},
		},
	}
}

// NewSyslogRFC5424Parser recognizes RFC 5424-structured syslog.
func NewSyslogRFC5424Parser() *DeclarativeParser {
	primary := regexp.MustCompile(
		`^<(?P<pri>\d{1,3})>(?P<version>\d)\s+(?P<syslog_time>\S+)\s+(?P<syslog_host>\S+)\s+(?P<syslog_app>\S+)\s+(?P<syslog_pid>\S+)\s+(?P<syslog_msgid>\S+)\s+(?P<syslog_msg>.*)$`)
	return &DeclarativeParser{
		id:               "syslog-rfc5424",
		requiredPatterns: []*regexp.Regexp{regexp.MustCompile(`^<\d{1,3}>\d\s`)},
		minSize:          10,
		primary:          primary,
		mappings: []FieldMapping{
			{Source: "syslog_time", CIMField: "event_timestamp"},
			{Source: "syslog_host", CIMField: "host"},
			{Source: "syslog_app", CIMField: "process"},
			{Source: "syslog_msg", CIMField: "message"},
		},
	}
}

// NewSyslogRFC3164Parser recognizes legacy BSD syslog (RFC 3164).
func NewSyslogRFC3164Parser() *DeclarativeParser {
	primary := regexp.MustCompile(
		`^<(?P<pri>\d{1,3})>(?P<syslog_time>\w{3}\s+\d{1,2}\s\d{2}:\d{2}:\d{2})\s+(?P<syslog_host>\S+)\s+(?P<syslog_tag>\S+?):?\s*(?P<syslog_msg>.*)$`)
	return &DeclarativeParser{
		id:               "syslog-rfc3164",
		requiredPatterns: []*regexp.Regexp{regexp.MustCompile(`^<\d{1,3}>[A-Za-z]{3}\s`)},
		minSize:          10,
		primary:          primary,
		mappings: []FieldMapping{
			{Source: "syslog_time", CIMField: "event_timestamp"},
			{Source: "syslog_host", CIMField: "host"},
			{Source: "syslog_tag", CIMField: "process"},
			{Source: "syslog_msg", CIMField: "message"},
		},
	}
}

// NewGenericKeyValueParser is the fallback for any space-separated
// key=value payload no specific parser claimed.
func NewGenericKeyValueParser() *DeclarativeParser {
	return &DeclarativeParser{
		id:                "generic-keyvalue",
		requiredPatterns:  []*regexp.Regexp{regexp.MustCompile(`\w+=\S+`)},
		minSize:           3,
		keyValueMode:      true,
		pairSeparator:     " ",
		keyValueSeparator: "=",
		mappings: []FieldMapping{
			{Source: "src", CIMField: "source_ip"},
			{Source: "dst", CIMField: "destination_ip"},
			{Source: "user", CIMField: "user"},
			{Source: "host", CIMField: "host"},
			{Source: "action", CIMField: "action"},
		},
	}
}

// NewGenericJSONParser is the fallback for any well-formed JSON document no
// more specific schema (ECS, etc.) claimed.
func NewGenericJSONParser() *DeclarativeParser {
	return &DeclarativeParser{
		id:       "generic-json",
		minSize:  2,
		jsonMode: true,
		mappings: []FieldMapping{
			{Source: "source_ip", CIMField: "source_ip", Transforms: []Transform{IPCoerce()}},
			{Source: "destination_ip", CIMField: "destination_ip", Transforms: []Transform{IPCoerce()}},
			{Source: "user", CIMField: "user"},
			{Source: "host", CIMField: "host"},
			{Source: "action", CIMField: "action"},
			{Source: "timestamp", CIMField: "event_timestamp"},
		},
	}
}

// RegisterBuiltins registers every built-in parser (spec §4.1) in an order
// that resolves Detect-score ties in favor of the most format-specific
// parser: structured/JSON/key-value specialized parsers first, generic
// fallbacks last.
func RegisterBuiltins(r *Registry) error {
	builtins := []Parser{
		NewECSJSONParser(),
		NewSplunkCIMParser(),
		NewWindowsEventParser(),
		NewCiscoASAParser(),
		NewPaloAltoParser(),
		NewF5Parser(),
		NewSyslogRFC5424Parser(),
		NewSyslogRFC3164Parser(),
		NewGenericKeyValueParser(),
		NewGenericJSONParser(),
	}
	for _, p := range builtins {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}
