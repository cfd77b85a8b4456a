package connectors

import (
	"errors"
	"fmt"
	"strconv"
)

// Configuration keys understood by the bundled connector classes.
const (
	FtpHostname        = "ftp.hostname"
	FtpPort            = "ftp.port"
	FtpUser            = "ftp.user.name"
	FtpPassword        = "ftp.user.password"
	FtpInputFolder     = "ftp.input.folder"
	FtpCompletedFolder = "ftp.completed.folder"
	FtpErrorFolder     = "ftp.error.folder"
	FtpOutputFolder    = "ftp.output.folder"
	FtpEncode          = "ftp.encode"

	JdbcURL             = "source.db.url"
	JdbcUser            = "source.db.username"
	JdbcPassword        = "source.db.password"
	JdbcTable           = "source.table.name"
	JdbcTimestampColumn = "source.timestamp.column.name"
	JdbcSchemaPattern   = "source.schema.pattern"
)

const DefaultEncoding = "UTF-8"

var ErrMissingSetting = errors.New("missing connector setting")

type FtpInfo struct {
	Hostname string `json:"hostname"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

func (i FtpInfo) Addr() string {
	return fmt.Sprintf("%s:%d", i.Hostname, i.Port)
}

func (i FtpInfo) Validate() error {
	if i.Hostname == "" {
		return fmt.Errorf("%w: %s", ErrMissingSetting, FtpHostname)
	}
	if i.Port <= 0 || i.Port > 65535 {
		return fmt.Errorf("%w: %s out of range", ErrMissingSetting, FtpPort)
	}
	return nil
}

func (i FtpInfo) configs(c Config) {
	c[FtpHostname] = i.Hostname
	c[FtpPort] = ""
	if i.Port > 0 {
		c[FtpPort] = strconv.Itoa(i.Port)
	}
	c[FtpUser] = i.User
	c[FtpPassword] = i.Password
}

func parseFtpInfo(c Config) (FtpInfo, error) {
	port, err := c.Int(FtpPort)
	if err != nil {
		return FtpInfo{}, err
	}
	return FtpInfo{
		Hostname: c.Get(FtpHostname),
		Port:     port,
		User:     c.Get(FtpUser),
		Password: c.Get(FtpPassword),
	}, nil
}

type FtpSourceSettings struct {
	FtpInfo
	InputFolder     string `json:"inputFolder"`
	CompletedFolder string `json:"completedFolder"`
	ErrorFolder     string `json:"errorFolder"`
	Encode          string `json:"encode"`
}

func (s FtpSourceSettings) Configs() Config {
	c := Config{}
	s.FtpInfo.configs(c)
	c[FtpInputFolder] = s.InputFolder
	c[FtpCompletedFolder] = s.CompletedFolder
	c[FtpErrorFolder] = s.ErrorFolder
	c[FtpEncode] = encoding(s.Encode)
	return c
}

func ParseFtpSource(c Config) (FtpSourceSettings, error) {
	info, err := parseFtpInfo(c)
	if err != nil {
		return FtpSourceSettings{}, err
	}
	return FtpSourceSettings{
		FtpInfo:         info,
		InputFolder:     c.Get(FtpInputFolder),
		CompletedFolder: c.Get(FtpCompletedFolder),
		ErrorFolder:     c.Get(FtpErrorFolder),
		Encode:          encoding(c.Get(FtpEncode)),
	}, nil
}

func (s FtpSourceSettings) Folders() []string {
	return nonEmpty(s.InputFolder, s.CompletedFolder, s.ErrorFolder)
}

type FtpSinkSettings struct {
	FtpInfo
	OutputFolder string `json:"outputFolder"`
	Encode       string `json:"encode"`
}

func (s FtpSinkSettings) Configs() Config {
	c := Config{}
	s.FtpInfo.configs(c)
	c[FtpOutputFolder] = s.OutputFolder
	c[FtpEncode] = encoding(s.Encode)
	return c
}

func ParseFtpSink(c Config) (FtpSinkSettings, error) {
	info, err := parseFtpInfo(c)
	if err != nil {
		return FtpSinkSettings{}, err
	}
	return FtpSinkSettings{
		FtpInfo:      info,
		OutputFolder: c.Get(FtpOutputFolder),
		Encode:       encoding(c.Get(FtpEncode)),
	}, nil
}

func (s FtpSinkSettings) Folders() []string {
	return nonEmpty(s.OutputFolder)
}

type RdbInfo struct {
	URL      string `json:"url"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type JdbcSourceSettings struct {
	RdbInfo
	Table           string `json:"table"`
	TimestampColumn string `json:"timestampColumn"`
	SchemaPattern   string `json:"schemaPattern"`
}

func (s JdbcSourceSettings) Configs() Config {
	return Config{
		JdbcURL:             s.URL,
		JdbcUser:            s.User,
		JdbcPassword:        s.Password,
		JdbcTable:           s.Table,
		JdbcTimestampColumn: s.TimestampColumn,
		JdbcSchemaPattern:   s.SchemaPattern,
	}
}

func ParseJdbcSource(c Config) JdbcSourceSettings {
	return JdbcSourceSettings{
		RdbInfo: RdbInfo{
			URL:      c.Get(JdbcURL),
			User:     c.Get(JdbcUser),
			Password: c.Get(JdbcPassword),
		},
		Table:           c.Get(JdbcTable),
		TimestampColumn: c.Get(JdbcTimestampColumn),
		SchemaPattern:   c.Get(JdbcSchemaPattern),
	}
}

func encoding(enc string) string {
	if enc == "" {
		return DefaultEncoding
	}
	return enc
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
