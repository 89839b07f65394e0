package config

type Config struct {
	Db_conn    string `mapstructure:"DB_CONN"`
	Jwt_secret string `mapstructure:"JWT_SECRET"`
	Image_dir  string `mapstructure:"IMAGE_DIR"`
}
