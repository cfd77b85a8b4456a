package config

type JarStoreType string

const (
	JarStoreTypeFileSystem JarStoreType = "file_system"
	JarStoreTypeBucket     JarStoreType = "bucket"
)

type FileSystemJarStoreConfig struct {
	Path string `yaml:"path"`
}

type BucketJarStoreConfig struct {
	URL             string `yaml:"url"`
	BucketName      string `yaml:"bucket_name"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type JarStoreConfig struct {
	Type       JarStoreType             `yaml:"type"`
	FileSystem FileSystemJarStoreConfig `yaml:"file_system"`
	Bucket     BucketJarStoreConfig     `yaml:"bucket"`
}
