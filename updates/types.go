package updates

// PlatformUpdate describes a newer 1C:Enterprise platform release
type PlatformUpdate struct {
	PlatformVersion   string `json:"platformVersion"`
	TransitionInfoURL string `json:"transitionInfoUrl"`
	ReleaseURL        string `json:"releaseUrl"`
	DistributionUin   string `json:"distributionUin"`
	Size              int64  `json:"size"`
	Recommended       bool   `json:"recommended"`
}

// ConfigurationUpdate describes a newer configuration version together with
// the ordered chain of incremental steps leading to it
type ConfigurationUpdate struct {
	ConfigurationVersion string   `json:"configurationVersion"`
	Size                 int64    `json:"size"`
	PlatformVersion      string   `json:"platformVersion"`
	UpdateInfoURL        string   `json:"updateInfoUrl"`
	HowToUpdateInfoURL   string   `json:"howToUpdateInfoUrl"`
	UpgradeSequence      []string `json:"upgradeSequence"`
	ProgramVersionUin    string   `json:"programVersionUin"`
}

// DownloadData locates the archive of one configuration chain step
type DownloadData struct {
	// TemplatePath is relative to the templates directory, with Windows separators
	TemplatePath         string `json:"templatePath"`
	ExecuteUpdateProcess bool   `json:"executeUpdateProcess"`
	UpdateFileURL        string `json:"updateFileUrl"`
	UpdateFileName       string `json:"updateFileName"`
	UpdateFileFormat     string `json:"updateFileFormat"`
	Size                 int64  `json:"size"`
	HashSum              string `json:"hashSum"`
}

// infoRequest is the body of POST {base}/update/info
type infoRequest struct {
	ProgramName     string `json:"programName"`
	VersionNumber   string `json:"versionNumber"`
	PlatformVersion string `json:"platformVersion"`
	UpdateType      string `json:"updateType"`
}

// updateRequest is the body of POST {base}/update/
type updateRequest struct {
	UpgradeSequence         []string `json:"upgradeSequence"`
	ProgramVersionUin       *string  `json:"programVersionUin"`
	PlatformDistributionUin *string  `json:"platformDistributionUin"`
	Login                   string   `json:"login"`
	Password                string   `json:"password"`
}

const (
	updateTypePlatform      = "NewPlatform"
	updateTypeConfiguration = "NewProgramOrRedaction"

	// the platform check is made on behalf of a fixed program line
	platformCheckProgram = "HRM"
	platformCheckVersion = "3.1"
)

const (
	fieldPlatformUpdate      = "platformUpdateResponse"
	fieldConfigurationUpdate = "configurationUpdateResponse"
	fieldPlatformURL         = "platformDistributionUrl"
	fieldConfigurationData   = "configurationUpdateDataList"
)
